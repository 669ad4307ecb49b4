package stockfish

import (
	"os"
	"strings"
)

// BenchLimitType selects what the bench command's limit value counts.
type BenchLimitType string

const (
	BenchLimitDepth    BenchLimitType = "depth"
	BenchLimitPerft    BenchLimitType = "perft"
	BenchLimitNodes    BenchLimitType = "nodes"
	BenchLimitMovetime BenchLimitType = "movetime"
)

// BenchEvalType selects the evaluation backend the bench command exercises.
type BenchEvalType string

const (
	BenchEvalMixed     BenchEvalType = "mixed"
	BenchEvalClassical BenchEvalType = "classical"
	BenchEvalNNUE      BenchEvalType = "NNUE"
)

// BenchmarkParameters configures the engine's built-in bench command. Each
// field is clamped independently to a safe default when out of range, so
// the zero value runs the standard benchmark; construction never fails.
type BenchmarkParameters struct {
	TTSize    int    // transposition table size in MB, 1..128000
	Threads   int    // 1..512
	Limit     int    // meaning set by LimitType, 1..10000
	FENFile   string // a readable path ending in .fen, or "default"
	LimitType BenchLimitType
	EvalType  BenchEvalType
}

func (p BenchmarkParameters) sanitize() BenchmarkParameters {
	if p.TTSize < 1 || p.TTSize > 128000 {
		p.TTSize = 16
	}
	if p.Threads < 1 || p.Threads > 512 {
		p.Threads = 1
	}
	if p.Limit < 1 || p.Limit > 10000 {
		p.Limit = 13
	}
	if !strings.HasSuffix(p.FENFile, ".fen") || !isRegularFile(p.FENFile) {
		p.FENFile = "default"
	}
	switch p.LimitType {
	case BenchLimitDepth, BenchLimitPerft, BenchLimitNodes, BenchLimitMovetime:
	default:
		p.LimitType = BenchLimitDepth
	}
	switch p.EvalType {
	case BenchEvalMixed, BenchEvalClassical, BenchEvalNNUE:
	default:
		p.EvalType = BenchEvalMixed
	}
	return p
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Benchmark runs the engine's built-in bench command and returns its
// nodes-per-second summary line. Do not call while a search is running.
func (e *Engine) Benchmark(p BenchmarkParameters) (string, error) {
	p = p.sanitize()
	if err := e.proc.writeLine(cmdBench(p)); err != nil {
		return "", err
	}
	for {
		line, err := e.proc.readLine()
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(line, "Nodes/second") {
			return line, nil
		}
	}
}
