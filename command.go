package stockfish

import (
	"fmt"
	"strconv"
	"strings"
)

// Command builders. Pure functions: each returns one UCI command line
// without the trailing newline, which the process channel appends.

func joinMoves(moves []string) string {
	return strings.Join(moves, " ")
}

func cmdSetOption(name string, value any) string {
	return fmt.Sprintf("setoption name %s value %s", name, optionValue(value))
}

// optionValue renders an option value in wire form. Booleans become the
// lowercase true/false tokens the protocol expects.
func optionValue(value any) string {
	switch v := value.(type) {
	case bool:
		return strconv.FormatBool(v)
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func cmdPositionFEN(fen string, moves ...string) string {
	if len(moves) == 0 {
		return "position fen " + fen
	}
	return fmt.Sprintf("position fen %s moves %s", fen, joinMoves(moves))
}

func cmdPositionStartpos(moves ...string) string {
	return "position startpos moves " + joinMoves(moves)
}

func cmdGoDepth(depth int) string {
	return "go depth " + strconv.Itoa(depth)
}

func cmdGoNodes(nodes int) string {
	return "go nodes " + strconv.Itoa(nodes)
}

func cmdGoMovetime(ms int) string {
	return "go movetime " + strconv.Itoa(ms)
}

// cmdGoClock builds a remaining-time search. A zero budget omits its clause;
// with both budgets zero the result is a bare "go", which callers must avoid
// by falling back to a bounded search.
func cmdGoClock(wtimeMs, btimeMs int) string {
	cmd := "go"
	if wtimeMs > 0 {
		cmd += " wtime " + strconv.Itoa(wtimeMs)
	}
	if btimeMs > 0 {
		cmd += " btime " + strconv.Itoa(btimeMs)
	}
	return cmd
}

// cmdGoSearchMove restricts a depth-1 search to a single candidate move.
// The engine answers bestmove (none) when the candidate is not legal.
func cmdGoSearchMove(move string) string {
	return "go depth 1 searchmoves " + move
}

func cmdBench(p BenchmarkParameters) string {
	return fmt.Sprintf("bench %d %d %d %s %s %s",
		p.TTSize, p.Threads, p.Limit, p.FENFile, p.LimitType, p.EvalType)
}
