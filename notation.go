package stockfish

import (
	"fmt"
	"regexp"
	"strings"
)

var engineMoveRE = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][QRBNqrbn]?$`)

var castleMoves = map[bool]map[bool]string{
	// white: kingside/queenside
	true:  {true: "e1g1", false: "e1c1"},
	false: {true: "e8g8", false: "e8c8"},
}

// MoveFromNotation resolves a move given in loose algebraic notation
// ("Nf3", "bxc8=Q", "O-O", decorations tolerated) to engine notation
// ("g1f3", "b7c8Q"). Input already in engine notation is checked for
// legality and returned as is. Resolution requires exactly one piece
// consistent with the notation to have a legal move to the destination;
// none fails with ErrInvalidArgument, several with AmbiguousMoveError.
// A capture marker that disagrees with the move's actual effect is
// rejected.
func (e *Engine) MoveFromNotation(notation string) (string, error) {
	n := strings.TrimSpace(notation)
	if n == "" {
		return "", fmt.Errorf("%w: empty move notation", ErrInvalidArgument)
	}

	if engineMoveRE.MatchString(n) {
		legal, err := e.IsMoveLegal(n)
		if err != nil {
			return "", err
		}
		if !legal {
			return "", &IllegalMoveError{Move: n}
		}
		return n, nil
	}

	n = strings.TrimRight(n, "+#!?")

	if move, ok := e.castlingMove(n); ok {
		legal, err := e.IsMoveLegal(move)
		if err != nil {
			return "", err
		}
		if !legal {
			return "", &IllegalMoveError{Move: move}
		}
		return move, nil
	}

	piece, srcFile, srcRank, dest, promotion, claimedCapture, err := decomposeNotation(n)
	if err != nil {
		return "", err
	}
	// A non-capturing pawn move stays on its file.
	if piece == WhitePawn && srcFile == 0 && !claimedCapture {
		srcFile = dest[0]
	}

	fen, err := e.GetFENPosition()
	if err != nil {
		return "", err
	}
	wanted := colorPiece(piece, whiteToMove(fen))

	grid, err := e.boardGrid()
	if err != nil {
		return "", err
	}
	var matches []string
	for file := byte('a'); file <= 'h'; file++ {
		if srcFile != 0 && file != srcFile {
			continue
		}
		for rank := byte('1'); rank <= '8'; rank++ {
			if srcRank != 0 && rank != srcRank {
				continue
			}
			from := string([]byte{file, rank})
			if grid.pieceOn(from) != wanted {
				continue
			}
			candidate := from + dest + promotion
			legal, err := e.IsMoveLegal(candidate)
			if err != nil {
				return "", err
			}
			if legal {
				matches = append(matches, candidate)
			}
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: no %s has a legal move to %s for notation '%s'",
			ErrInvalidArgument, wanted, dest, notation)
	case 1:
	default:
		return "", &AmbiguousMoveError{Notation: notation, Matches: matches}
	}
	move := matches[0]

	capture, err := e.WillMoveBeACapture(move)
	if err != nil {
		return "", err
	}
	if claimedCapture != (capture != CaptureNone) {
		return "", fmt.Errorf("%w: notation '%s' %s a capture but move %s %s one",
			ErrInvalidArgument, notation,
			claims(claimedCapture), move, is(capture != CaptureNone))
	}
	return move, nil
}

func claims(b bool) string {
	if b {
		return "claims"
	}
	return "does not claim"
}

func is(b bool) string {
	if b {
		return "is"
	}
	return "is not"
}

// castlingMove recognizes the common castling spellings and maps them to
// the side to move's king move.
func (e *Engine) castlingMove(n string) (string, bool) {
	var kingside bool
	switch strings.ToUpper(n) {
	case "O-O-O", "0-0-0", "OOO", "000":
		kingside = false
	case "O-O", "0-0", "OO", "00":
		kingside = true
	default:
		return "", false
	}
	fen, err := e.GetFENPosition()
	if err != nil {
		return "", false
	}
	return castleMoves[whiteToMove(fen)][kingside], true
}

// decomposeNotation splits loose algebraic notation into its parts:
// moving piece type (White letter form; pawn when absent), optional source
// file/rank constraints, destination square, promotion suffix and whether
// an 'x' capture marker was present.
func decomposeNotation(n string) (piece Piece, srcFile, srcRank byte, dest, promotion string, capture bool, err error) {
	piece = WhitePawn

	if i := strings.Index(n, "="); i >= 0 {
		promotion = n[i+1:]
		n = n[:i]
	} else if len(n) > 0 {
		if last := n[len(n)-1]; last == 'Q' || last == 'R' || last == 'B' || last == 'N' {
			if len(n) >= 2 && n[len(n)-2] >= '1' && n[len(n)-2] <= '8' {
				promotion = n[len(n)-1:]
				n = n[:len(n)-1]
			}
		}
	}
	if len(promotion) > 1 || (promotion != "" && !strings.ContainsAny(promotion, "QRBNqrbn")) {
		return 0, 0, 0, "", "", false, fmt.Errorf("%w: malformed promotion in notation", ErrInvalidArgument)
	}

	if len(n) > 0 {
		switch n[0] {
		case 'K', 'Q', 'R', 'B', 'N':
			piece = Piece(n[0])
			n = n[1:]
		}
	}

	if i := strings.IndexByte(n, 'x'); i >= 0 {
		capture = true
		n = n[:i] + n[i+1:]
	}

	if len(n) < 2 || !validSquare(n[len(n)-2:]) {
		return 0, 0, 0, "", "", false, fmt.Errorf("%w: no destination square in notation", ErrInvalidArgument)
	}
	dest = n[len(n)-2:]
	n = n[:len(n)-2]

	for i := 0; i < len(n); i++ {
		switch {
		case n[i] >= 'a' && n[i] <= 'h' && srcFile == 0:
			srcFile = n[i]
		case n[i] >= '1' && n[i] <= '8' && srcRank == 0:
			srcRank = n[i]
		default:
			return 0, 0, 0, "", "", false, fmt.Errorf("%w: unrecognized disambiguation '%s' in notation", ErrInvalidArgument, n)
		}
	}
	return piece, srcFile, srcRank, dest, promotion, capture, nil
}

// colorPiece maps a White-letter piece type to the given side's piece.
func colorPiece(white Piece, forWhite bool) Piece {
	if forWhite {
		return white
	}
	return Piece(byte(white) - 'A' + 'a')
}
