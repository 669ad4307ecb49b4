package stockfish

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

const fakeBanner = "Stockfish 15.1 by the Stockfish developers (see AUTHORS file)"

// fakeEngine scripts a UCI engine over a pipe pair. It tracks the current
// position the way the real engine does and answers d, go and eval from
// per-FEN tables the test fills in.
type fakeEngine struct {
	banner     string
	options    []string
	fileLabels bool

	fen   string
	legal map[string][]string // fen -> legal moves answered to searchmoves probes
	lines map[string][]string // fen -> info lines emitted by a full search
	best  map[string]string   // fen -> bestmove token, "" meaning (none)
	after map[string]string   // "fen|move" -> resulting fen
	eval  map[string]string   // fen -> static evaluation line
	bench string

	mu       sync.Mutex
	commands []string
	done     chan struct{}
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		banner:     fakeBanner,
		fileLabels: true,
		fen:        startingFEN,
		legal:      map[string][]string{},
		lines:      map[string][]string{},
		best:       map[string]string{},
		after:      map[string]string{},
		eval:       map[string]string{},
		bench:      "Nodes/second    : 1234567",
		done:       make(chan struct{}),
	}
}

func (f *fakeEngine) record(cmd string) {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()
}

func (f *fakeEngine) received(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.commands {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeEngine) isLegal(move string) bool {
	for _, m := range f.legal[f.fen] {
		if m == move {
			return true
		}
	}
	return false
}

func (f *fakeEngine) run(r io.Reader, w io.WriteCloser) {
	defer close(f.done)
	defer w.Close()
	fmt.Fprintln(w, f.banner)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "uci":
			fmt.Fprintln(w, "id name Stockfish 15.1")
			for _, o := range f.options {
				fmt.Fprintln(w, o)
			}
			fmt.Fprintln(w, "uciok")
		case "isready":
			fmt.Fprintln(w, "readyok")
		case "setoption", "ucinewgame":
			// state only
		case "position":
			f.applyPosition(parts)
		case "d":
			f.dump(w)
		case "go":
			f.search(w, parts)
		case "eval":
			fmt.Fprintln(w, f.eval[f.fen])
		case "bench":
			fmt.Fprintln(w, f.bench)
		case "quit":
			return
		}
	}
}

func (f *fakeEngine) applyPosition(parts []string) {
	rest := parts[1:]
	var moves []string
	for i, p := range rest {
		if p == "moves" {
			moves = rest[i+1:]
			rest = rest[:i]
			break
		}
	}
	if rest[0] == "startpos" {
		f.fen = startingFEN
	} else {
		f.fen = strings.Join(rest[1:], " ")
	}
	for _, m := range moves {
		if next, ok := f.after[f.fen+"|"+m]; ok {
			f.fen = next
		}
	}
}

func (f *fakeEngine) dump(w io.Writer) {
	border := " +---+---+---+---+---+---+---+---+"
	fmt.Fprintln(w, border)
	for i, rank := range expandFENRanks(f.fen) {
		row := " |"
		for _, c := range []byte(rank) {
			row += fmt.Sprintf(" %c |", c)
		}
		fmt.Fprintf(w, "%s %d\n", row, 8-i)
		fmt.Fprintln(w, border)
	}
	if f.fileLabels {
		fmt.Fprintln(w, "   a   b   c   d   e   f   g   h")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Fen: "+f.fen)
	fmt.Fprintln(w, "Key: 8F8F01D4562F59FB")
	fmt.Fprintln(w, "Checkers: ")
}

func (f *fakeEngine) search(w io.Writer, parts []string) {
	for i, p := range parts {
		if p == "searchmoves" {
			move := parts[i+1]
			fmt.Fprintln(w, "info depth 1 seldepth 1")
			if f.isLegal(move) {
				fmt.Fprintln(w, "bestmove "+move)
			} else {
				fmt.Fprintln(w, "bestmove (none)")
			}
			return
		}
	}
	for _, l := range f.lines[f.fen] {
		fmt.Fprintln(w, l)
	}
	if f.best[f.fen] == "" {
		fmt.Fprintln(w, "bestmove (none)")
	} else {
		fmt.Fprintln(w, "bestmove "+f.best[f.fen])
	}
}

// expandFENRanks turns the board field of a FEN into eight 8-byte rows,
// rank 8 first, spaces for empty squares.
func expandFENRanks(fen string) []string {
	board := strings.Fields(fen)[0]
	var rows []string
	for _, rank := range strings.Split(board, "/") {
		var row []byte
		for i := 0; i < len(rank); i++ {
			if rank[i] >= '1' && rank[i] <= '8' {
				for j := 0; j < int(rank[i]-'0'); j++ {
					row = append(row, ' ')
				}
			} else {
				row = append(row, rank[i])
			}
		}
		rows = append(rows, string(row))
	}
	return rows
}

// recordingWriter appends each complete line to the fake's command log
// before forwarding it down the pipe, so a command is observable via
// received as soon as the client's write returns rather than only after
// the fake's reader goroutine gets around to it.
type recordingWriter struct {
	f   *fakeEngine
	w   io.WriteCloser
	buf []byte
}

func (rw *recordingWriter) Write(p []byte) (int, error) {
	rw.buf = append(rw.buf, p...)
	for {
		i := bytes.IndexByte(rw.buf, '\n')
		if i < 0 {
			break
		}
		rw.f.record(string(rw.buf[:i]))
		rw.buf = rw.buf[i+1:]
	}
	return rw.w.Write(p)
}

func (rw *recordingWriter) Close() error { return rw.w.Close() }

func startFake(t *testing.T, f *fakeEngine, cfg Config) *Engine {
	t.Helper()
	clientR, fakeW := io.Pipe()
	fakeR, clientW := io.Pipe()
	go f.run(fakeR, fakeW)
	e, err := newEngineFromIO(clientR, &recordingWriter{f: f, w: clientW}, cfg)
	if err != nil {
		t.Fatalf("handshake failed: %v", err)
	}
	t.Cleanup(func() {
		_ = e.Close()
		<-f.done
	})
	return e
}

func TestHandshake(t *testing.T) {
	f := newFakeEngine()
	e := startFake(t, f, Config{})

	if got := e.MajorVersion(); got != 15 {
		t.Errorf("MajorVersion, want: '%v' got: '%v'", 15, got)
	}
	if e.IsDevelopmentBuild() {
		t.Errorf("IsDevelopmentBuild, want: '%v' got: '%v'", false, true)
	}
	if e.HasWDLOption() {
		t.Errorf("HasWDLOption without advertisement, want: '%v' got: '%v'", false, true)
	}
	if got := e.Options(); got != defaultOptions() {
		t.Errorf("Options after handshake, want: '%+v' got: '%+v'", defaultOptions(), got)
	}

	// every default option must have been pushed, each followed by a
	// readiness barrier
	setopts := f.received("setoption")
	if len(setopts) != len(optionNames) {
		t.Errorf("setoption count, want: '%v' got: '%v'", len(optionNames), len(setopts))
	}
	if n := len(f.received("ucinewgame")); n != 1 {
		t.Errorf("ucinewgame count, want: '%v' got: '%v'", 1, n)
	}
}

func TestDevelopmentBuildBanner(t *testing.T) {
	f := newFakeEngine()
	f.banner = "Stockfish 280322 by the Stockfish developers (see AUTHORS file)"
	e := startFake(t, f, Config{})

	if got := e.MajorVersion(); got != 280322 {
		t.Errorf("MajorVersion, want: '%v' got: '%v'", 280322, got)
	}
	if !e.IsDevelopmentBuild() {
		t.Errorf("IsDevelopmentBuild, want: '%v' got: '%v'", true, false)
	}
}

func TestFENRoundTrip(t *testing.T) {
	f := newFakeEngine()
	e := startFake(t, f, Config{})

	fen := "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3"
	if err := e.SetFENPosition(fen, true); err != nil {
		t.Fatal(err)
	}
	got, err := e.GetFENPosition()
	if err != nil {
		t.Fatal(err)
	}
	if got != fen {
		t.Errorf("FEN round trip, want: '%v' got: '%v'", fen, got)
	}
}

func TestIdempotentClose(t *testing.T) {
	f := newFakeEngine()
	e := startFake(t, f, Config{})

	for i := 0; i < 3; i++ {
		if err := e.Close(); err != nil {
			t.Fatalf("Close #%d: %v", i+1, err)
		}
	}
	<-f.done
	if n := len(f.received("quit")); n != 1 {
		t.Errorf("quit commands sent, want: '%v' got: '%v'", 1, n)
	}
}

func TestOptionIsolation(t *testing.T) {
	f1, f2 := newFakeEngine(), newFakeEngine()
	e1 := startFake(t, f1, Config{})
	e2 := startFake(t, f2, Config{})

	if err := e1.SetSkillLevel(1); err != nil {
		t.Fatal(err)
	}
	if e1.Options() == e2.Options() {
		t.Errorf("option isolation, want differing option sets, got identical")
	}
	if got := e2.Options().SkillLevel; got != 20 {
		t.Errorf("second session SkillLevel, want: '%v' got: '%v'", 20, got)
	}
}

func TestGetBestMove(t *testing.T) {
	f := newFakeEngine()
	f.lines[startingFEN] = []string{
		"info depth 15 seldepth 20 multipv 1 score cp 32 nodes 50000 nps 1000000 time 50 pv e2e4 e7e5",
	}
	f.best[startingFEN] = "e2e4"
	e := startFake(t, f, Config{})

	move, err := e.GetBestMove()
	if err != nil {
		t.Fatal(err)
	}
	if move != "e2e4" {
		t.Errorf("best move, want: '%v' got: '%v'", "e2e4", move)
	}
	wantInfo := f.lines[startingFEN][0]
	if got := e.Info(); got != wantInfo {
		t.Errorf("Info, want: '%v' got: '%v'", wantInfo, got)
	}
	if got := f.received("go depth 15"); len(got) != 1 {
		t.Errorf("go depth commands, want: '%v' got: '%v'", 1, len(got))
	}
}

func TestGetBestMoveWithClock(t *testing.T) {
	f := newFakeEngine()
	f.best[startingFEN] = "e2e4"
	e := startFake(t, f, Config{})

	cases := []struct {
		name    string
		wtime   int
		btime   int
		wantCmd string
	}{
		{"both", 1000, 2000, "go wtime 1000 btime 2000"},
		{"white only", 1000, 0, "go wtime 1000"},
		{"black only", 0, 2000, "go btime 2000"},
		{"neither falls back to depth", 0, 0, "go depth 15"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := e.GetBestMoveWithClock(c.wtime, c.btime); err != nil {
				t.Fatal(err)
			}
			if got := f.received(c.wantCmd); len(got) == 0 {
				t.Errorf("command sent, want: '%v' got: none", c.wantCmd)
			}
		})
	}
}

func TestGetBestMoveTime(t *testing.T) {
	f := newFakeEngine()
	f.best[startingFEN] = "e2e4"
	e := startFake(t, f, Config{})

	if _, err := e.GetBestMoveTime(500); err != nil {
		t.Fatal(err)
	}
	if got := f.received("go movetime 500"); len(got) != 1 {
		t.Errorf("go movetime commands, want: '%v' got: '%v'", 1, len(got))
	}
}

func TestMateAndStalemateSentinels(t *testing.T) {
	mateFEN := "1nb1k1n1/pppppppp/8/6r1/5bqK/6r1/8/8 w - - 2 2"
	stalemateFEN := "8/8/8/8/8/5k2/5p2/5K2 w - - 0 1"

	f := newFakeEngine()
	f.lines[mateFEN] = []string{"info depth 0 score mate 0"}
	f.lines[stalemateFEN] = []string{"info depth 0 score cp 0"}
	e := startFake(t, f, Config{})

	if err := e.SetFENPosition(mateFEN, true); err != nil {
		t.Fatal(err)
	}
	move, err := e.GetBestMove()
	if err != nil {
		t.Fatal(err)
	}
	if move != "" {
		t.Errorf("best move when mated, want: '%v' got: '%v'", "", move)
	}
	eval, err := e.GetEvaluation()
	if err != nil {
		t.Fatal(err)
	}
	if eval != (Evaluation{Type: ScoreMate, Value: 0}) {
		t.Errorf("mate evaluation, want: '%+v' got: '%+v'", Evaluation{Type: ScoreMate, Value: 0}, eval)
	}

	if err := e.SetFENPosition(stalemateFEN, true); err != nil {
		t.Fatal(err)
	}
	eval, err = e.GetEvaluation()
	if err != nil {
		t.Fatal(err)
	}
	if eval != (Evaluation{Type: ScoreCentipawn, Value: 0}) {
		t.Errorf("stalemate evaluation, want: '%+v' got: '%+v'", Evaluation{Type: ScoreCentipawn, Value: 0}, eval)
	}
}

func TestPerspectiveSymmetry(t *testing.T) {
	blackToMove := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
	whiteToMove := startingFEN

	f := newFakeEngine()
	f.lines[blackToMove] = []string{"info depth 15 multipv 1 score cp -25 pv e7e5"}
	f.best[blackToMove] = "e7e5"
	f.lines[whiteToMove] = []string{"info depth 15 multipv 1 score cp 32 pv e2e4"}
	f.best[whiteToMove] = "e2e4"
	e := startFake(t, f, Config{})

	// Black to move: turn-relative and White-absolute values are exact
	// negations.
	if err := e.SetFENPosition(blackToMove, true); err != nil {
		t.Fatal(err)
	}
	e.SetTurnPerspective(true)
	relative, err := e.GetEvaluation()
	if err != nil {
		t.Fatal(err)
	}
	e.SetTurnPerspective(false)
	absolute, err := e.GetEvaluation()
	if err != nil {
		t.Fatal(err)
	}
	if relative.Value != -absolute.Value {
		t.Errorf("black-to-move symmetry, want negation of '%v' got: '%v'", relative.Value, absolute.Value)
	}

	// White to move: the two conventions coincide.
	if err := e.SetFENPosition(whiteToMove, true); err != nil {
		t.Fatal(err)
	}
	e.SetTurnPerspective(true)
	relative, err = e.GetEvaluation()
	if err != nil {
		t.Fatal(err)
	}
	e.SetTurnPerspective(false)
	absolute, err = e.GetEvaluation()
	if err != nil {
		t.Fatal(err)
	}
	if relative != absolute {
		t.Errorf("white-to-move symmetry, want: '%+v' got: '%+v'", relative, absolute)
	}
}

func TestIsMoveLegalPreservesInfo(t *testing.T) {
	f := newFakeEngine()
	f.legal[startingFEN] = []string{"e2e4", "g1f3"}
	f.lines[startingFEN] = []string{"info depth 15 multipv 1 score cp 32 pv e2e4"}
	f.best[startingFEN] = "e2e4"
	e := startFake(t, f, Config{})

	if _, err := e.GetBestMove(); err != nil {
		t.Fatal(err)
	}
	savedInfo := e.Info()

	cases := []struct {
		move string
		want bool
	}{
		{"e2e4", true},
		{"g1f3", true},
		{"e2e5", false},
		{"a1a8", false},
	}
	for _, c := range cases {
		t.Run(c.move, func(t *testing.T) {
			got, err := e.IsMoveLegal(c.move)
			if err != nil {
				t.Fatal(err)
			}
			if got != c.want {
				t.Errorf("IsMoveLegal(%s), want: '%v' got: '%v'", c.move, c.want, got)
			}
		})
	}
	if got := e.Info(); got != savedInfo {
		t.Errorf("Info after legality probes, want: '%v' got: '%v'", savedInfo, got)
	}
}

func TestMakeMovesFromCurrentPosition(t *testing.T) {
	afterE4 := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	afterE4E5 := "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2"

	f := newFakeEngine()
	f.legal[startingFEN] = []string{"e2e4"}
	f.legal[afterE4] = []string{"e7e5"}
	f.after[startingFEN+"|e2e4"] = afterE4
	f.after[afterE4+"|e7e5"] = afterE4E5
	e := startFake(t, f, Config{})

	if err := e.MakeMovesFromCurrentPosition("e2e4", "e7e5"); err != nil {
		t.Fatal(err)
	}
	fen, err := e.GetFENPosition()
	if err != nil {
		t.Fatal(err)
	}
	if fen != afterE4E5 {
		t.Errorf("position after moves, want: '%v' got: '%v'", afterE4E5, fen)
	}
	// moves forward never reset the transposition table
	if n := len(f.received("ucinewgame")); n != 1 {
		t.Errorf("ucinewgame count, want: '%v' (handshake only) got: '%v'", 1, n)
	}
}

func TestMakeMovesIllegalMove(t *testing.T) {
	f := newFakeEngine()
	f.legal[startingFEN] = []string{"e2e4"}
	e := startFake(t, f, Config{})

	err := e.MakeMovesFromCurrentPosition("e2e5")
	var illegalErr *IllegalMoveError
	if !errors.As(err, &illegalErr) {
		t.Fatalf("error type, want: IllegalMoveError got: %v", err)
	}
	if illegalErr.Move != "e2e5" {
		t.Errorf("offending move, want: '%v' got: '%v'", "e2e5", illegalErr.Move)
	}
}

func TestMakeMovesEmptyListIsNoOp(t *testing.T) {
	f := newFakeEngine()
	e := startFake(t, f, Config{})

	before := len(f.received(""))
	if err := e.MakeMovesFromCurrentPosition(); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	<-f.done
	after := len(f.received("")) - len(f.received("quit"))
	if before != after {
		t.Errorf("commands sent by empty move list, want: '%v' got: '%v'", 0, after-before)
	}
}

func TestGetTopMoves(t *testing.T) {
	f := newFakeEngine()
	f.lines[startingFEN] = []string{
		"info depth 10 seldepth 12 multipv 1 score cp 30 nodes 1000 nps 100000 time 10 pv e2e4 e7e5",
		"info depth 10 seldepth 12 multipv 2 score cp 20 nodes 900 nps 90000 time 10 pv d2d4 d7d5",
		"info depth 10 seldepth 11 multipv 3 score mate 5 nodes 800 nps 80000 time 10 pv g1f3",
		"info depth 11 seldepth 14 multipv 1 score cp 35 wdl 500 400 100 nodes 2000 nps 200000 time 20 pv e2e4 c7c5",
		"info depth 11 seldepth 13 multipv 2 score cp 22 nodes 1800 nps 180000 time 20 pv d2d4 g8f6",
		"info depth 11 seldepth 12 multipv 3 score mate 4 nodes 1500 nps 150000 time 20 pv g1f3 d7d5",
	}
	f.best[startingFEN] = "e2e4"
	e := startFake(t, f, Config{})

	moves, err := e.GetTopMoves(3, true, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(moves) != 3 {
		t.Fatalf("top move count, want: '%v' got: '%v'", 3, len(moves))
	}

	if moves[0].Move != "e2e4" || moves[0].Centipawn == nil || *moves[0].Centipawn != 35 || moves[0].Mate != nil {
		t.Errorf("top move 1, want: e2e4 cp 35 got: '%+v'", moves[0])
	}
	if moves[0].WDL == nil || *moves[0].WDL != (WDL{Win: 500, Draw: 400, Loss: 100}) {
		t.Errorf("top move 1 WDL, want: 500/400/100 got: '%+v'", moves[0].WDL)
	}
	if moves[0].SelDepth != 14 || moves[0].Nodes != 2000 || moves[0].NodesPerSecond != 200000 || moves[0].TimeMs != 20 {
		t.Errorf("top move 1 verbose fields, got: '%+v'", moves[0])
	}
	if moves[1].Move != "d2d4" || moves[1].Centipawn == nil || *moves[1].Centipawn != 22 {
		t.Errorf("top move 2, want: d2d4 cp 22 got: '%+v'", moves[1])
	}
	if moves[2].Move != "g1f3" || moves[2].Mate == nil || *moves[2].Mate != 4 || moves[2].Centipawn != nil {
		t.Errorf("top move 3, want: g1f3 mate 4 got: '%+v'", moves[2])
	}

	// MultiPV must have been raised for the search and restored after
	setopts := f.received("setoption name MultiPV")
	want := []string{"setoption name MultiPV value 1", "setoption name MultiPV value 3", "setoption name MultiPV value 1"}
	if len(setopts) != len(want) {
		t.Fatalf("MultiPV commands, want: '%v' got: '%v'", want, setopts)
	}
	for i := range want {
		if setopts[i] != want[i] {
			t.Errorf("MultiPV command %d, want: '%v' got: '%v'", i, want[i], setopts[i])
		}
	}
	if got := e.Options().MultiPV; got != 1 {
		t.Errorf("MultiPV after GetTopMoves, want: '%v' got: '%v'", 1, got)
	}
}

func TestGetTopMovesNodeLimit(t *testing.T) {
	f := newFakeEngine()
	f.lines[startingFEN] = []string{
		"info depth 11 seldepth 14 multipv 1 score cp 35 nodes 2000 nps 200000 time 20 pv e2e4",
	}
	f.best[startingFEN] = "e2e4"
	e := startFake(t, f, Config{})

	prevLimit := e.NodeLimit()
	if _, err := e.GetTopMoves(1, false, 5000); err != nil {
		t.Fatal(err)
	}
	if got := f.received("go nodes 5000"); len(got) != 1 {
		t.Errorf("go nodes commands, want: '%v' got: '%v'", 1, len(got))
	}
	if got := e.NodeLimit(); got != prevLimit {
		t.Errorf("node limit after GetTopMoves, want: '%v' got: '%v'", prevLimit, got)
	}
}

func TestGetTopMovesInvalidCount(t *testing.T) {
	f := newFakeEngine()
	e := startFake(t, f, Config{})

	for _, n := range []int{0, -3} {
		if _, err := e.GetTopMoves(n, false, 0); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("GetTopMoves(%d) error, want: ErrInvalidArgument got: '%v'", n, err)
		}
	}
}

func TestGetTopMovesNoLegalMoves(t *testing.T) {
	mateFEN := "1nb1k1n1/pppppppp/8/6r1/5bqK/6r1/8/8 w - - 2 2"
	f := newFakeEngine()
	f.lines[mateFEN] = []string{"info depth 0 score mate 0"}
	e := startFake(t, f, Config{})

	if err := e.SetFENPosition(mateFEN, true); err != nil {
		t.Fatal(err)
	}
	moves, err := e.GetTopMoves(2, false, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(moves) != 0 {
		t.Errorf("top moves in mate, want: '%v' got: '%v'", 0, len(moves))
	}
}

func TestGetTopMovesScoreConflict(t *testing.T) {
	f := newFakeEngine()
	f.lines[startingFEN] = []string{
		"info depth 11 multipv 1 score cp 35 score mate 3 pv e2e4",
	}
	f.best[startingFEN] = "e2e4"
	e := startFake(t, f, Config{})

	_, err := e.GetTopMoves(1, false, 0)
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("error type, want: ProtocolError got: %v", err)
	}
}

func TestGetWDLStats(t *testing.T) {
	blackToMove := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"

	f := newFakeEngine()
	f.options = []string{"option name UCI_ShowWDL type check default false"}
	f.lines[startingFEN] = []string{
		"info depth 15 multipv 1 score cp 32 wdl 480 430 90 pv e2e4",
	}
	f.best[startingFEN] = "e2e4"
	f.lines[blackToMove] = []string{
		"info depth 15 multipv 1 score cp -20 wdl 300 450 250 pv e7e5",
	}
	f.best[blackToMove] = "e7e5"
	e := startFake(t, f, Config{})

	if !e.HasWDLOption() {
		t.Fatalf("HasWDLOption, want: '%v' got: '%v'", true, false)
	}

	wdl, err := e.GetWDLStats()
	if err != nil {
		t.Fatal(err)
	}
	if *wdl != (WDL{Win: 480, Draw: 430, Loss: 90}) {
		t.Errorf("WDL, want: '%+v' got: '%+v'", WDL{480, 430, 90}, *wdl)
	}

	// with turn perspective off and Black to move, the triple is flipped
	// so it always reads from White's side
	if err := e.SetFENPosition(blackToMove, true); err != nil {
		t.Fatal(err)
	}
	e.SetTurnPerspective(false)
	wdl, err = e.GetWDLStats()
	if err != nil {
		t.Fatal(err)
	}
	if *wdl != (WDL{Win: 250, Draw: 450, Loss: 300}) {
		t.Errorf("flipped WDL, want: '%+v' got: '%+v'", WDL{250, 450, 300}, *wdl)
	}
}

func TestGetWDLStatsUnsupported(t *testing.T) {
	f := newFakeEngine()
	e := startFake(t, f, Config{})

	if _, err := e.GetWDLStats(); !errors.Is(err, ErrUnsupportedFeature) {
		t.Errorf("GetWDLStats error, want: ErrUnsupportedFeature got: '%v'", err)
	}
}

func TestGetStaticEvaluation(t *testing.T) {
	blackToMove := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"

	f := newFakeEngine()
	f.eval[startingFEN] = "Final evaluation       +0.30 (white side)"
	f.eval[blackToMove] = "Final evaluation       +0.25 (white side)"
	e := startFake(t, f, Config{})

	v, err := e.GetStaticEvaluation()
	if err != nil {
		t.Fatal(err)
	}
	if v == nil || *v != 0.30 {
		t.Errorf("static eval, want: '%v' got: '%v'", 0.30, v)
	}

	// turn perspective flips the White-relative value for Black
	if err := e.SetFENPosition(blackToMove, true); err != nil {
		t.Fatal(err)
	}
	v, err = e.GetStaticEvaluation()
	if err != nil {
		t.Fatal(err)
	}
	if v == nil || *v != -0.25 {
		t.Errorf("static eval for black, want: '%v' got: '%v'", -0.25, v)
	}
}

func TestGetStaticEvaluationNone(t *testing.T) {
	checkFEN := "rnbqkbnr/pppp1ppp/8/4p3/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq - 0 2"
	f := newFakeEngine()
	f.eval[checkFEN] = "Final evaluation: none (in check)"
	e := startFake(t, f, Config{})

	if err := e.SetFENPosition(checkFEN, true); err != nil {
		t.Fatal(err)
	}
	v, err := e.GetStaticEvaluation()
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Errorf("static eval of unscoreable position, want: nil got: '%v'", *v)
	}
}

func TestUpdateEngineParameters(t *testing.T) {
	f := newFakeEngine()
	e := startFake(t, f, Config{})

	fen := "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3"
	if err := e.SetFENPosition(fen, true); err != nil {
		t.Fatal(err)
	}

	if err := e.UpdateEngineParameters(map[string]any{"Hash": 64, "Threads": 4}); err != nil {
		t.Fatal(err)
	}
	opts := e.Options()
	if opts.Hash != 64 || opts.Threads != 4 {
		t.Errorf("options after update, want Hash 64 Threads 4, got: '%+v'", opts)
	}

	// thread count is applied before hash size, and the position is
	// re-asserted afterwards
	var threadsIdx, hashIdx, positionIdx int
	for i, cmd := range f.received("") {
		switch cmd {
		case "setoption name Threads value 4":
			threadsIdx = i
		case "setoption name Hash value 64":
			hashIdx = i
		case "position fen " + fen:
			positionIdx = i
		}
	}
	if threadsIdx == 0 || hashIdx == 0 || positionIdx == 0 {
		t.Fatalf("expected commands missing: threads=%d hash=%d position=%d", threadsIdx, hashIdx, positionIdx)
	}
	if threadsIdx > hashIdx {
		t.Errorf("Threads must be set before Hash, got threads=%d hash=%d", threadsIdx, hashIdx)
	}
	if positionIdx < hashIdx {
		t.Errorf("position must be re-asserted after options, got position=%d hash=%d", positionIdx, hashIdx)
	}
}

func TestUpdateEngineParametersValidation(t *testing.T) {
	f := newFakeEngine()
	e := startFake(t, f, Config{})

	cases := []struct {
		name   string
		params map[string]any
	}{
		{"unknown option", map[string]any{"Syzygy Probe Depth": 1}},
		{"string for bool option", map[string]any{"Ponder": "true"}},
		{"string for int option", map[string]any{"Hash": "64"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := e.UpdateEngineParameters(c.params); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("error, want: ErrInvalidArgument got: '%v'", err)
			}
		})
	}
}

func TestStrengthFlagDerivation(t *testing.T) {
	f := newFakeEngine()
	e := startFake(t, f, Config{})

	if err := e.SetEloRating(1500); err != nil {
		t.Fatal(err)
	}
	opts := e.Options()
	if !opts.LimitStrength || opts.Elo != 1500 {
		t.Errorf("after SetEloRating, want LimitStrength true Elo 1500, got: '%+v'", opts)
	}

	if err := e.SetSkillLevel(10); err != nil {
		t.Fatal(err)
	}
	opts = e.Options()
	if opts.LimitStrength || opts.SkillLevel != 10 {
		t.Errorf("after SetSkillLevel, want LimitStrength false SkillLevel 10, got: '%+v'", opts)
	}
}

func TestDepthAndNodeLimitSetters(t *testing.T) {
	f := newFakeEngine()
	e := startFake(t, f, Config{})

	if err := e.SetDepth(20); err != nil {
		t.Fatal(err)
	}
	if got := e.Depth(); got != 20 {
		t.Errorf("Depth, want: '%v' got: '%v'", 20, got)
	}
	if err := e.SetDepth(0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetDepth(0) error, want: ErrInvalidArgument got: '%v'", err)
	}

	if err := e.SetNodeLimit(500); err != nil {
		t.Fatal(err)
	}
	if got := e.NodeLimit(); got != 500 {
		t.Errorf("NodeLimit, want: '%v' got: '%v'", 500, got)
	}
	if err := e.SetNodeLimit(-1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetNodeLimit(-1) error, want: ErrInvalidArgument got: '%v'", err)
	}
}

func TestGetBoardVisual(t *testing.T) {
	f := newFakeEngine()
	e := startFake(t, f, Config{})

	white, err := e.GetBoardVisual(true)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(white, "\n"), "\n")
	if len(lines) != 18 {
		t.Fatalf("board line count, want: '%v' got: '%v'", 18, len(lines))
	}
	if !strings.Contains(lines[1], "| r |") {
		t.Errorf("top rank from White, want black pieces, got: '%v'", lines[1])
	}
	if !strings.HasSuffix(lines[1], "8") {
		t.Errorf("rank number suffix, want trailing 8, got: '%v'", lines[1])
	}

	black, err := e.GetBoardVisual(false)
	if err != nil {
		t.Fatal(err)
	}
	blines := strings.Split(strings.TrimRight(black, "\n"), "\n")
	if !strings.Contains(blines[1], "| R |") {
		t.Errorf("top rank from Black, want white pieces, got: '%v'", blines[1])
	}
	if !strings.HasSuffix(blines[1], "1") {
		t.Errorf("rank number suffix, want trailing 1, got: '%v'", blines[1])
	}
}

func TestBenchmark(t *testing.T) {
	f := newFakeEngine()
	e := startFake(t, f, Config{})

	summary, err := e.Benchmark(BenchmarkParameters{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(summary, "Nodes/second") {
		t.Errorf("bench summary, want Nodes/second line, got: '%v'", summary)
	}
	if got := f.received("bench 16 1 13 default depth mixed"); len(got) != 1 {
		t.Errorf("bench command with sanitized defaults, got: '%v'", f.received("bench"))
	}
}

func TestReadAfterCrash(t *testing.T) {
	_, w := io.Pipe()
	p := newProcessFromIO(strings.NewReader(""), w, zerolog.Nop())

	if _, err := p.readLine(); !errors.Is(err, ErrEngineCrashed) {
		t.Errorf("read at EOF, want: ErrEngineCrashed got: '%v'", err)
	}
}
