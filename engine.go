package stockfish

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const startingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type sessionState int

const (
	stateStarting sessionState = iota
	stateReady
	stateQuitting
	stateTerminated
)

// Config holds the constructor inputs for an Engine. The zero value is
// usable: Path defaults to "stockfish" on the PATH, Depth to 15, NodeLimit
// to 1000000, TurnPerspective to enabled, Logger to a no-op.
type Config struct {
	// Path locates the engine binary.
	Path string

	// Depth is the search depth used by depth-bounded operations.
	Depth int

	// NodeLimit bounds node-limited searches when one is requested.
	NodeLimit int

	// TurnPerspective selects the score reporting convention: enabled
	// means scores are relative to the side to move (the engine's native
	// convention), disabled means positive always favors White.
	TurnPerspective *bool

	// Parameters overrides individual engine options at startup, by wire
	// name ("Threads", "Hash", ...). Boolean options take Go bools.
	Parameters map[string]any

	Logger zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.Path == "" {
		c.Path = "stockfish"
	}
	if c.Depth == 0 {
		c.Depth = 15
	}
	if c.NodeLimit == 0 {
		c.NodeLimit = 1000000
	}
	if c.TurnPerspective == nil {
		enabled := true
		c.TurnPerspective = &enabled
	}
	return c
}

// Engine is one session with a chess engine subprocess. All methods are
// synchronous and must be called from a single goroutine: the UCI protocol
// has no command-response correlation, so interleaved use of one session
// cannot be made safe. Independent Engines own independent subprocesses and
// never share state.
type Engine struct {
	proc *process
	log  zerolog.Logger

	path            string
	depth           int
	nodeLimit       int
	turnPerspective bool
	opts            Options

	// info holds the diagnostic line that immediately preceded the most
	// recent bestmove reply.
	info string

	majorVersion int
	hasWDL       bool

	state sessionState
}

// NewEngine spawns the engine binary and performs the UCI handshake:
// reads the identification banner, sends uci, applies the default option
// set (plus any Config overrides), probes for WDL support and starts a
// new game. The returned Engine is ready for position and search
// operations. Callers own the subprocess and must Close it.
func NewEngine(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	proc, err := newProcess(cfg.Path, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("spawn engine: %w", err)
	}
	e, err := handshake(proc, cfg)
	if err != nil {
		_ = proc.close()
		return nil, err
	}
	return e, nil
}

// newEngineFromIO builds a session over raw pipe endpoints with no
// subprocess behind them. Tests drive a scripted engine through this.
func newEngineFromIO(r io.Reader, w io.WriteCloser, cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	return handshake(newProcessFromIO(r, w, cfg.Logger), cfg)
}

func handshake(proc *process, cfg Config) (*Engine, error) {
	e := &Engine{
		proc:            proc,
		log:             cfg.Logger,
		path:            cfg.Path,
		depth:           cfg.Depth,
		nodeLimit:       cfg.NodeLimit,
		turnPerspective: *cfg.TurnPerspective,
		opts:            defaultOptions(),
		state:           stateStarting,
	}

	banner, err := e.proc.readLine()
	if err != nil {
		return nil, fmt.Errorf("read banner: %w", err)
	}
	e.majorVersion, _ = parseBanner(banner)

	// One uci round-trip serves both the handshake and the capability
	// probe: the option list the engine advertises before uciok tells us
	// whether this build can report WDL statistics.
	if err := e.proc.writeLine("uci"); err != nil {
		return nil, err
	}
	for {
		line, err := e.proc.readLine()
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(line, "option name UCI_ShowWDL") {
			e.hasWDL = true
		}
		if line == "uciok" {
			break
		}
	}

	updates, err := planUpdates(cfg.Parameters)
	if err != nil {
		return nil, err
	}
	overridden := make(map[string]bool, len(updates))
	for _, u := range updates {
		overridden[u.name] = true
	}
	for _, name := range optionNames {
		if overridden[name] {
			continue
		}
		v, _ := e.opts.value(name)
		if err := e.setOption(name, v); err != nil {
			return nil, err
		}
	}
	for _, u := range updates {
		if err := e.setOption(u.name, u.value); err != nil {
			return nil, err
		}
	}
	if e.hasWDL {
		if err := e.proc.writeLine(cmdSetOption("UCI_ShowWDL", true)); err != nil {
			return nil, err
		}
		if err := e.barrier(); err != nil {
			return nil, err
		}
	}

	if err := e.newGame(); err != nil {
		return nil, err
	}
	e.state = stateReady
	return e, nil
}

// Close sends quit and waits for the subprocess to exit. It is idempotent:
// repeated calls, and calls racing an engine crash, are safe no-ops.
func (e *Engine) Close() error {
	if e.state == stateTerminated {
		return nil
	}
	e.state = stateQuitting
	err := e.proc.close()
	e.state = stateTerminated
	return err
}

// barrier is the protocol's synchronization primitive: isready is answered
// by readyok only after the engine has consumed all prior input. Inserted
// after every option change and new-position declaration.
func (e *Engine) barrier() error {
	if err := e.proc.writeLine("isready"); err != nil {
		return err
	}
	for {
		line, err := e.proc.readLine()
		if err != nil {
			return err
		}
		if line == "readyok" {
			return nil
		}
	}
}

// setOption pushes one option to the engine, barriers, and records the new
// value. Callers must have validated name and value.
func (e *Engine) setOption(name string, value any) error {
	if err := e.proc.writeLine(cmdSetOption(name, value)); err != nil {
		return err
	}
	if err := e.barrier(); err != nil {
		return err
	}
	e.opts.setField(name, value)
	return nil
}

func (e *Engine) newGame() error {
	if err := e.proc.writeLine("ucinewgame"); err != nil {
		return err
	}
	return e.barrier()
}

// prepareNewPosition barriers the engine ahead of a position change and
// clears the diagnostic info string. Resetting the transposition table is
// expensive; skip it when the new position continues the current line.
func (e *Engine) prepareNewPosition(resetTranspositionTable bool) error {
	if resetTranspositionTable {
		if err := e.proc.writeLine("ucinewgame"); err != nil {
			return err
		}
	}
	if err := e.barrier(); err != nil {
		return err
	}
	e.info = ""
	return nil
}

// SetFENPosition jumps the engine to an arbitrary position. Pass
// resetTranspositionTable=false when the position continues the line the
// engine was already analyzing, to keep its cached search data.
func (e *Engine) SetFENPosition(fen string, resetTranspositionTable bool) error {
	if err := e.prepareNewPosition(resetTranspositionTable); err != nil {
		return err
	}
	return e.proc.writeLine(cmdPositionFEN(fen))
}

// SetPosition sets up the standard starting position and plays the given
// moves from it.
func (e *Engine) SetPosition(moves ...string) error {
	if err := e.SetFENPosition(startingFEN, true); err != nil {
		return err
	}
	return e.MakeMovesFromCurrentPosition(moves...)
}

// MakeMovesFromCurrentPosition advances the position one ply at a time.
// Each move is checked for legality before it is applied; an illegal move
// fails with IllegalMoveError and leaves the position at the last legal
// ply. An empty move list is a no-op. The transposition table is kept.
func (e *Engine) MakeMovesFromCurrentPosition(moves ...string) error {
	if len(moves) == 0 {
		return nil
	}
	if err := e.prepareNewPosition(false); err != nil {
		return err
	}
	for _, move := range moves {
		legal, err := e.IsMoveLegal(move)
		if err != nil {
			return err
		}
		if !legal {
			return &IllegalMoveError{Move: move}
		}
		fen, err := e.GetFENPosition()
		if err != nil {
			return err
		}
		if err := e.proc.writeLine(cmdPositionFEN(fen, move)); err != nil {
			return err
		}
	}
	return nil
}

// GetFENPosition re-reads the current position from the engine. The engine
// owns the authoritative position; the client never caches it.
func (e *Engine) GetFENPosition() (string, error) {
	if err := e.proc.writeLine("d"); err != nil {
		return "", err
	}
	var fen string
	for {
		line, err := e.proc.readLine()
		if err != nil {
			return "", err
		}
		parts := strings.Split(line, " ")
		if parts[0] == "Fen:" {
			fen = strings.Join(parts[1:], " ")
		}
		if strings.Contains(line, "Checkers") {
			return fen, nil
		}
	}
}

// GetBoardVisual renders the engine's ASCII board. With perspectiveWhite
// false the drawing is mirrored so that Black's back rank is at the bottom;
// rank numbers stay on the right edge. Newer engine builds add a file-letter
// footer, detected by content rather than assumed from the version.
func (e *Engine) GetBoardVisual(perspectiveWhite bool) (string, error) {
	if err := e.proc.writeLine("d"); err != nil {
		return "", err
	}
	var lines []string
	count := 0
	for count < 17 {
		line, err := e.proc.readLine()
		if err != nil {
			return "", err
		}
		if !isBoardLine(line) {
			continue
		}
		count++
		if perspectiveWhite {
			lines = append(lines, line)
		} else {
			lines = append(lines, mirrorBoardLine(line))
		}
	}
	if !perspectiveWhite {
		for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
			lines[i], lines[j] = lines[j], lines[i]
		}
	}
	line, err := e.proc.readLine()
	if err != nil {
		return "", err
	}
	if isFileLabelLine(line) {
		if perspectiveWhite {
			lines = append(lines, line)
		} else {
			lines = append(lines, reverseString(line))
		}
	}
	if err := e.drainTo("Checkers"); err != nil {
		return "", err
	}
	return strings.Join(lines, "\n") + "\n", nil
}

func (e *Engine) drainTo(marker string) error {
	for {
		line, err := e.proc.readLine()
		if err != nil {
			return err
		}
		if strings.Contains(line, marker) {
			return nil
		}
	}
}

// search issues one go command and reads to the bestmove reply, buffering
// every line in between. The line immediately preceding bestmove is kept
// as the session's diagnostic info string. The returned move is "" when the
// engine reports (none), meaning the side to move has no legal reply.
func (e *Engine) search(goCmd string) (string, []string, error) {
	if e.opts.reducedStrength() {
		e.log.Warn().Msg("searching at reduced strength, result is not representative of full-strength play")
	}
	if err := e.proc.writeLine(goCmd); err != nil {
		return "", nil, err
	}
	var lines []string
	var last string
	for {
		line, err := e.proc.readLine()
		if err != nil {
			return "", nil, err
		}
		if move, ok := parseBestMove(line); ok {
			e.info = last
			if move == "(none)" {
				return "", lines, nil
			}
			return move, lines, nil
		}
		lines = append(lines, line)
		last = line
	}
}

// GetBestMove searches to the session depth and returns the best move in
// engine notation, or "" when the side to move is mated or stalemated.
func (e *Engine) GetBestMove() (string, error) {
	move, _, err := e.search(cmdGoDepth(e.depth))
	return move, err
}

// GetBestMoveWithClock searches under remaining-clock budgets in
// milliseconds. A zero budget omits its clause; both zero falls back to a
// depth-bounded search.
func (e *Engine) GetBestMoveWithClock(wtimeMs, btimeMs int) (string, error) {
	if wtimeMs <= 0 && btimeMs <= 0 {
		return e.GetBestMove()
	}
	move, _, err := e.search(cmdGoClock(wtimeMs, btimeMs))
	return move, err
}

// GetBestMoveTime searches for a fixed think time in milliseconds.
func (e *Engine) GetBestMoveTime(timeMs int) (string, error) {
	move, _, err := e.search(cmdGoMovetime(timeMs))
	return move, err
}

// IsMoveLegal asks the engine whether a move is legal in the current
// position, via a one-ply search restricted to that move. The probe leaves
// the session's diagnostic info string untouched.
func (e *Engine) IsMoveLegal(move string) (bool, error) {
	saved := e.info
	best, _, err := e.search(cmdGoSearchMove(move))
	e.info = saved
	if err != nil {
		return false, err
	}
	return best != "", nil
}

// perspectiveSign converts the engine's side-to-move-relative scores into
// the session's reporting convention. With turn perspective on, scores pass
// through; with it off, scores are flipped when Black is to move so that
// positive always favors White.
func (e *Engine) perspectiveSign() (int, error) {
	if e.turnPerspective {
		return 1, nil
	}
	fen, err := e.GetFENPosition()
	if err != nil {
		return 0, err
	}
	if whiteToMove(fen) {
		return 1, nil
	}
	return -1, nil
}

// GetEvaluation searches to the session depth and returns the final score.
// A checkmated side to move evaluates to {mate, 0}; a stalemate evaluates
// to {cp, 0}.
func (e *Engine) GetEvaluation() (Evaluation, error) {
	sign, err := e.perspectiveSign()
	if err != nil {
		return Evaluation{}, err
	}
	_, lines, err := e.search(cmdGoDepth(e.depth))
	if err != nil {
		return Evaluation{}, err
	}
	for i := len(lines) - 1; i >= 0; i-- {
		sl := parseSearchLine(lines[i])
		if sl.cp != nil {
			return Evaluation{Type: ScoreCentipawn, Value: *sl.cp * sign}, nil
		}
		if sl.mate != nil {
			return Evaluation{Type: ScoreMate, Value: *sl.mate * sign}, nil
		}
	}
	return Evaluation{}, &ProtocolError{Reason: "search produced no score"}
}

// GetStaticEvaluation returns the engine's direct evaluation of the current
// position in pawn units, without searching. The result is nil when the
// engine declines to score the position statically (a side is in check).
func (e *Engine) GetStaticEvaluation() (*float64, error) {
	if err := e.proc.writeLine("eval"); err != nil {
		return nil, err
	}
	for {
		line, err := e.proc.readLine()
		if err != nil {
			return nil, err
		}
		// Engine versions disagree on the marker wording.
		if !strings.HasPrefix(line, "Final evaluation") && !strings.HasPrefix(line, "Total Evaluation") {
			continue
		}
		parts := strings.Fields(line)
		for i := range parts {
			if !strings.HasPrefix(strings.ToLower(parts[i]), "evaluation") || i+1 >= len(parts) {
				continue
			}
			tok := parts[i+1]
			if tok == "none" {
				return nil, nil
			}
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, &ProtocolError{Reason: "static evaluation is not numeric", Line: line}
			}
			// The engine reports static evaluation from White's
			// point of view regardless of the side to move.
			if e.turnPerspective {
				fen, err := e.GetFENPosition()
				if err != nil {
					return nil, err
				}
				if !whiteToMove(fen) {
					v = -v
				}
			}
			return &v, nil
		}
		return nil, &ProtocolError{Reason: "malformed static evaluation line", Line: line}
	}
}

// GetTopMoves reports the n best moves in the current position. With
// verbose set, each entry also carries selective depth, time, node counts
// and the WDL estimate when the engine supports one. A positive nodeLimit
// switches the search to a node-limited one. The MultiPV and node-limit
// settings are restored before returning, on every path.
func (e *Engine) GetTopMoves(n int, verbose bool, nodeLimit int) (_ []TopMove, err error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: top moves count must be at least 1, got %d", ErrInvalidArgument, n)
	}
	sign, err := e.perspectiveSign()
	if err != nil {
		return nil, err
	}

	prevMultiPV := e.opts.MultiPV
	prevNodeLimit := e.nodeLimit
	defer func() {
		e.nodeLimit = prevNodeLimit
		if e.opts.MultiPV != prevMultiPV {
			if rerr := e.setOption("MultiPV", prevMultiPV); rerr != nil && err == nil {
				err = rerr
			}
		}
	}()

	if e.opts.MultiPV != n {
		if err := e.setOption("MultiPV", n); err != nil {
			return nil, err
		}
	}
	goCmd := cmdGoDepth(e.depth)
	if nodeLimit > 0 {
		e.nodeLimit = nodeLimit
		goCmd = cmdGoNodes(e.nodeLimit)
	}
	best, lines, err := e.search(goCmd)
	if err != nil {
		return nil, err
	}
	if best == "" {
		return []TopMove{}, nil
	}
	return extractTopMoves(lines, n, verbose, sign)
}

// HasWDLOption reports whether the engine build can produce win/draw/loss
// statistics. Probed once during the handshake.
func (e *Engine) HasWDLOption() bool {
	return e.hasWDL
}

// GetWDLStats returns the engine's win/draw/loss estimate in permille for
// the current position, nil when the side to move has no legal moves. It
// fails with ErrUnsupportedFeature on engine builds without WDL support.
// The triple is ordered by the session's reporting convention: with turn
// perspective on it reads from the side to move, otherwise from White.
func (e *Engine) GetWDLStats() (*WDL, error) {
	if !e.hasWDL {
		return nil, fmt.Errorf("%w: WDL statistics", ErrUnsupportedFeature)
	}
	flip := false
	if !e.turnPerspective {
		fen, err := e.GetFENPosition()
		if err != nil {
			return nil, err
		}
		flip = !whiteToMove(fen)
	}
	best, lines, err := e.search(cmdGoDepth(e.depth))
	if err != nil {
		return nil, err
	}
	if best == "" {
		return nil, nil
	}
	wdl, ok := extractWDL(lines)
	if !ok {
		return nil, &ProtocolError{Reason: "search produced no wdl triple"}
	}
	if flip {
		wdl = &WDL{Win: wdl.Loss, Draw: wdl.Draw, Loss: wdl.Win}
	}
	return wdl, nil
}

// UpdateEngineParameters applies a set of option changes by wire name.
// Unknown names and wrongly typed values fail with ErrInvalidArgument
// before anything reaches the engine. When exactly one of Skill Level and
// UCI_Elo is given without UCI_LimitStrength, the flag is derived to match.
// Thread changes are applied before hash changes, and the current position
// is re-asserted afterwards since some options reset engine-internal state.
func (e *Engine) UpdateEngineParameters(params map[string]any) error {
	updates, err := planUpdates(params)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}
	fen, err := e.GetFENPosition()
	if err != nil {
		return err
	}
	for _, u := range updates {
		if err := e.setOption(u.name, u.value); err != nil {
			return err
		}
	}
	return e.SetFENPosition(fen, false)
}

// Options returns a copy of the session's current option set.
func (e *Engine) Options() Options {
	return e.opts
}

// SetSkillLevel puts the engine on the skill-level ladder (0..20),
// disabling Elo-based strength limiting.
func (e *Engine) SetSkillLevel(level int) error {
	return e.UpdateEngineParameters(map[string]any{
		"Skill Level":       level,
		"UCI_LimitStrength": false,
	})
}

// SetEloRating limits the engine to an approximate Elo strength.
func (e *Engine) SetEloRating(elo int) error {
	return e.UpdateEngineParameters(map[string]any{
		"UCI_Elo":           elo,
		"UCI_LimitStrength": true,
	})
}

func (e *Engine) SetDepth(depth int) error {
	if depth < 1 {
		return fmt.Errorf("%w: depth must be at least 1, got %d", ErrInvalidArgument, depth)
	}
	e.depth = depth
	return nil
}

func (e *Engine) Depth() int {
	return e.depth
}

func (e *Engine) SetNodeLimit(nodes int) error {
	if nodes < 1 {
		return fmt.Errorf("%w: node limit must be at least 1, got %d", ErrInvalidArgument, nodes)
	}
	e.nodeLimit = nodes
	return nil
}

func (e *Engine) NodeLimit() int {
	return e.nodeLimit
}

func (e *Engine) SetTurnPerspective(enabled bool) {
	e.turnPerspective = enabled
}

func (e *Engine) TurnPerspective() bool {
	return e.turnPerspective
}

// Info returns the diagnostic line the engine emitted immediately before
// its most recent bestmove reply.
func (e *Engine) Info() string {
	return e.info
}

// MajorVersion returns the engine's major version as parsed from its
// startup banner; 0 when the banner carries no version number.
func (e *Engine) MajorVersion() int {
	return e.majorVersion
}

// IsDevelopmentBuild reports whether the engine identifies itself with a
// ddmmyy-style build date instead of a release version number.
func (e *Engine) IsDevelopmentBuild() bool {
	return e.majorVersion >= 10109 && e.majorVersion <= 311299
}
