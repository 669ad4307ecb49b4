package stockfish

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	castlingFieldRE  = regexp.MustCompile(`^(-|[KQkq]{1,4})$`)
	enPassantFieldRE = regexp.MustCompile(`^(-|[a-h][36])$`)
)

// fenSyntaxValid checks a FEN string structurally, without consulting the
// engine: six fields, eight rank descriptors each covering exactly eight
// files with no adjacent empty-run digits, one king per side, and
// consistent move counters.
func fenSyntaxValid(fen string) bool {
	fields := strings.Fields(fen)
	if len(fields) != 6 {
		return false
	}

	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return false
	}
	var whiteKings, blackKings int
	for _, rank := range ranks {
		files := 0
		prevDigit := false
		for i := 0; i < len(rank); i++ {
			c := rank[i]
			if c >= '1' && c <= '8' {
				if prevDigit {
					return false
				}
				prevDigit = true
				files += int(c - '0')
				continue
			}
			prevDigit = false
			if _, ok := pieceFromByte(c); !ok {
				return false
			}
			if c == 'K' {
				whiteKings++
			}
			if c == 'k' {
				blackKings++
			}
			files++
		}
		if files != 8 {
			return false
		}
	}
	if whiteKings != 1 || blackKings != 1 {
		return false
	}

	if fields[1] != "w" && fields[1] != "b" {
		return false
	}
	if !castlingFieldRE.MatchString(fields[2]) {
		return false
	}
	if !enPassantFieldRE.MatchString(fields[3]) {
		return false
	}

	halfmove, err := strconv.Atoi(fields[4])
	if err != nil || halfmove < 0 {
		return false
	}
	fullmove, err := strconv.Atoi(fields[5])
	if err != nil || fullmove < 1 {
		return false
	}
	return halfmove < 2*fullmove
}

// IsFENValid reports whether a FEN describes a position the engine can
// play from. A structural check runs first; only structurally sound FENs
// are put to the engine, on a throwaway session so that a crash (how the
// engine rejects semantically impossible positions) cannot take down the
// caller's session. The throwaway session is always torn down.
func (e *Engine) IsFENValid(fen string) (bool, error) {
	if !fenSyntaxValid(fen) {
		return false, nil
	}

	probe, err := NewEngine(Config{
		Path:       e.path,
		Depth:      min(e.depth, 15),
		Parameters: map[string]any{"Hash": 16, "Threads": 1},
		Logger:     e.log,
	})
	if err != nil {
		return false, err
	}
	defer func() { _ = probe.Close() }()

	return probe.semanticFENCheck(fen)
}

func (p *Engine) semanticFENCheck(fen string) (bool, error) {
	if err := p.SetFENPosition(fen, false); err != nil {
		return false, err
	}
	_, err := p.GetBestMove()
	if err != nil {
		if errors.Is(err, ErrEngineCrashed) || errors.Is(err, ErrPipeClosed) {
			return false, nil
		}
		return false, err
	}
	// Any reply, including the no-legal-move sentinel, means the engine
	// accepted the position.
	return true, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
