package stockfish

import (
	"fmt"
	"strings"
)

func validSquare(square string) bool {
	return len(square) == 2 &&
		square[0] >= 'a' && square[0] <= 'h' &&
		square[1] >= '1' && square[1] <= '8'
}

// boardGrid captures one rendering of the engine's ASCII board, indexed by
// square. Rank 8 is the top row of the White-perspective drawing; each cell
// is 4 characters wide with its content 2 characters in.
type boardGrid []string

func (e *Engine) boardGrid() (boardGrid, error) {
	visual, err := e.GetBoardVisual(true)
	if err != nil {
		return nil, err
	}
	return boardGrid(strings.Split(visual, "\n")), nil
}

func (g boardGrid) pieceOn(square string) Piece {
	row := 17 - 2*int(square[1]-'0')
	col := 2 + 4*int(square[0]-'a')
	if row >= len(g) || col >= len(g[row]) {
		return PieceNone
	}
	p, ok := pieceFromByte(g[row][col])
	if !ok {
		return PieceNone
	}
	return p
}

// PieceOnSquare reports which piece occupies a square, PieceNone for an
// empty square. The square must be in algebraic form, "e4".
func (e *Engine) PieceOnSquare(square string) (Piece, error) {
	if !validSquare(square) {
		return PieceNone, fmt.Errorf("%w: malformed square '%s'", ErrInvalidArgument, square)
	}
	grid, err := e.boardGrid()
	if err != nil {
		return PieceNone, err
	}
	return grid.pieceOn(square), nil
}

// WillMoveBeACapture classifies what a move would take: a piece on the
// destination square (direct), a pawn passing the en-passant target square
// (en passant), or nothing. The move must be legal in the current position.
// In Chess960 mode castling is encoded as the king capturing its own rook
// and is classified as no capture.
func (e *Engine) WillMoveBeACapture(move string) (Capture, error) {
	legal, err := e.IsMoveLegal(move)
	if err != nil {
		return CaptureNone, err
	}
	if !legal {
		return CaptureNone, fmt.Errorf("%w: move '%s' is not legal in the current position", ErrInvalidArgument, move)
	}
	from, to := move[:2], move[2:4]
	grid, err := e.boardGrid()
	if err != nil {
		return CaptureNone, err
	}
	mover := grid.pieceOn(from)
	target := grid.pieceOn(to)

	if e.opts.Chess960 && target != PieceNone && mover.IsWhite() == target.IsWhite() {
		if (mover == WhiteKing && target == WhiteRook) || (mover == BlackKing && target == BlackRook) {
			return CaptureNone, nil
		}
	}
	if target != PieceNone {
		return CaptureDirect, nil
	}

	fen, err := e.GetFENPosition()
	if err != nil {
		return CaptureNone, err
	}
	if enPassantTarget(fen) == to && (mover == WhitePawn || mover == BlackPawn) {
		return CaptureEnPassant, nil
	}
	return CaptureNone, nil
}

// CountPieces sums the occurrences of the given pieces over the rectangular
// board region spanned by the file and rank ranges, both inclusive. The
// filter is case-sensitive; an empty filter counts nothing.
func (e *Engine) CountPieces(fileFrom, fileTo byte, rankFrom, rankTo int, pieces []Piece) (int, error) {
	if fileFrom < 'a' || fileFrom > 'h' || fileTo < 'a' || fileTo > 'h' || fileFrom > fileTo {
		return 0, fmt.Errorf("%w: file range %c-%c out of order or outside a-h", ErrInvalidArgument, fileFrom, fileTo)
	}
	if rankFrom < 1 || rankFrom > 8 || rankTo < 1 || rankTo > 8 || rankFrom > rankTo {
		return 0, fmt.Errorf("%w: rank range %d-%d out of order or outside 1-8", ErrInvalidArgument, rankFrom, rankTo)
	}
	if len(pieces) == 0 {
		return 0, nil
	}
	wanted := make(map[Piece]bool, len(pieces))
	for _, p := range pieces {
		wanted[p] = true
	}
	grid, err := e.boardGrid()
	if err != nil {
		return 0, err
	}
	count := 0
	for file := fileFrom; file <= fileTo; file++ {
		for rank := rankFrom; rank <= rankTo; rank++ {
			square := string([]byte{file, byte('0' + rank)})
			if wanted[grid.pieceOn(square)] {
				count++
			}
		}
	}
	return count, nil
}
