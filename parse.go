package stockfish

import (
	"strconv"
	"strings"
)

// ScoreType discriminates the two kinds of engine score.
type ScoreType string

const (
	ScoreCentipawn ScoreType = "cp"
	ScoreMate      ScoreType = "mate"
)

// Evaluation is a single engine score. Value is signed according to the
// session's turn-perspective setting. A mate score counts plies to mate;
// mate 0 means the side to move is already checkmated.
type Evaluation struct {
	Type  ScoreType
	Value int
}

// WDL holds the engine's win/draw/loss estimate in permille.
type WDL struct {
	Win  int
	Draw int
	Loss int
}

// TopMove is one entry of a multi-PV report. Exactly one of Centipawn and
// Mate is set. The remaining fields are filled only for verbose requests.
type TopMove struct {
	Move      string
	Centipawn *int
	Mate      *int

	SelDepth       int
	TimeMs         int
	Nodes          int
	NodesPerSecond int
	WDL            *WDL
}

// searchLine is the structured form of one "info ..." line emitted during a
// search. Pointer fields distinguish absent from zero.
type searchLine struct {
	depth    int
	selDepth int
	multiPV  int
	cp       *int
	mate     *int
	wdl      *WDL
	nodes    int
	nps      int
	timeMs   int
	pvMove   string
}

// parseSearchLine tokenizes one engine output line. Lines that are not
// info lines come back zero-valued; callers test the fields they need.
func parseSearchLine(line string) searchLine {
	var sl searchLine
	parts := strings.Split(line, " ")
	if len(parts) == 0 || parts[0] != "info" {
		return sl
	}
	for i := 1; i < len(parts); i++ {
		inc := 1
		switch parts[i] {
		case "depth":
			sl.depth = atoi(arg(parts, i+1))
		case "seldepth":
			sl.selDepth = atoi(arg(parts, i+1))
		case "multipv":
			sl.multiPV = atoi(arg(parts, i+1))
		case "score":
			n := atoi(arg(parts, i+2))
			switch arg(parts, i+1) {
			case "cp":
				sl.cp = &n
			case "mate":
				sl.mate = &n
			}
			inc = 2
		case "wdl":
			sl.wdl = &WDL{
				Win:  atoi(arg(parts, i+1)),
				Draw: atoi(arg(parts, i+2)),
				Loss: atoi(arg(parts, i+3)),
			}
			inc = 3
		case "nodes":
			sl.nodes = atoi(arg(parts, i+1))
		case "nps":
			sl.nps = atoi(arg(parts, i+1))
		case "time":
			sl.timeMs = atoi(arg(parts, i+1))
		case "pv":
			sl.pvMove = arg(parts, i+1)
			return sl
		}
		i += inc - 1
	}
	return sl
}

// parseBestMove extracts the move token from a bestmove line. The sentinel
// "(none)" is returned verbatim; the session maps it to the no-move result.
func parseBestMove(line string) (string, bool) {
	parts := strings.Split(line, " ")
	if len(parts) < 2 || parts[0] != "bestmove" {
		return "", false
	}
	return parts[1], true
}

// parseBanner extracts the engine's major version from its identification
// banner: the second whitespace token's leading run of digits. Development
// builds that carry no leading digit report version 0.
func parseBanner(line string) (int, bool) {
	parts := strings.Split(line, " ")
	if len(parts) < 2 {
		return 0, false
	}
	digits := leadingDigits(parts[1])
	if digits == "" {
		return 0, false
	}
	return atoi(digits), true
}

func leadingDigits(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return s[:i]
		}
	}
	return s
}

// extractTopMoves scans buffered search output in reverse, keeping the
// deepest (latest-emitted) line per PV index up to n. Each selected line
// must carry exactly one of a centipawn or mate score; sign flips the score
// into the caller's reporting perspective.
func extractTopMoves(lines []string, n int, verbose bool, sign int) ([]TopMove, error) {
	byIndex := make([]*TopMove, n+1)
	remaining := n
	for i := len(lines) - 1; i >= 0 && remaining > 0; i-- {
		sl := parseSearchLine(lines[i])
		if sl.multiPV < 1 || sl.multiPV > n || byIndex[sl.multiPV] != nil || sl.pvMove == "" {
			continue
		}
		if (sl.cp == nil) == (sl.mate == nil) {
			return nil, &ProtocolError{Reason: "search line must carry exactly one of cp and mate", Line: lines[i]}
		}
		tm := &TopMove{Move: sl.pvMove}
		if sl.cp != nil {
			v := *sl.cp * sign
			tm.Centipawn = &v
		} else {
			v := *sl.mate * sign
			tm.Mate = &v
		}
		if verbose {
			tm.SelDepth = sl.selDepth
			tm.TimeMs = sl.timeMs
			tm.Nodes = sl.nodes
			tm.NodesPerSecond = sl.nps
			tm.WDL = sl.wdl
		}
		byIndex[sl.multiPV] = tm
		remaining--
	}
	moves := make([]TopMove, 0, n-remaining)
	for _, tm := range byIndex {
		if tm != nil {
			moves = append(moves, *tm)
		}
	}
	return moves, nil
}

// extractWDL returns the win/draw/loss triple from the last first-PV line
// that carries one.
func extractWDL(lines []string) (*WDL, bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		sl := parseSearchLine(lines[i])
		if sl.multiPV == 1 && sl.wdl != nil {
			return sl.wdl, true
		}
	}
	return nil, false
}

// isBoardLine reports whether a line belongs to the ASCII board drawing.
func isBoardLine(line string) bool {
	return strings.ContainsAny(line, "+|")
}

// isFileLabelLine detects the file-letter footer newer engine builds print
// under the board.
func isFileLabelLine(line string) bool {
	return strings.Contains(line, "a   b   c")
}

// mirrorBoardLine flips one board line for Black's perspective: the drawing
// region (first 33 characters) is reversed, the rank-number suffix stays on
// the right.
func mirrorBoardLine(line string) string {
	if len(line) <= 33 {
		return reverseString(line)
	}
	return reverseString(line[:33]) + line[33:]
}

func reverseString(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// whiteToMove reads the active-color field of a FEN.
func whiteToMove(fen string) bool {
	fields := strings.Fields(fen)
	return len(fields) < 2 || fields[1] == "w"
}

// enPassantTarget reads the en-passant field of a FEN, "-" when none.
func enPassantTarget(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return "-"
	}
	return fields[3]
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func arg(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}
