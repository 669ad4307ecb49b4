package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/zhelyabuzhsky/stockfish"
	"github.com/zhelyabuzhsky/stockfish/commas"
	"github.com/zhelyabuzhsky/stockfish/report"
)

// config is the YAML file driving a batch analysis run.
type config struct {
	Engine          string         `yaml:"engine"`
	Depth           int            `yaml:"depth"`
	TopMoves        int            `yaml:"top_moves"`
	Verbose         bool           `yaml:"verbose"`
	TurnPerspective *bool          `yaml:"turn_perspective"`
	Options         map[string]any `yaml:"options"`
	FEN             string         `yaml:"fen"`
	Moves           []string       `yaml:"moves"`
	FENFile         string         `yaml:"fen_file"`
	Output          string         `yaml:"output"`
	ShowBoard       bool           `yaml:"show_board"`
	Bench           bool           `yaml:"bench"`
}

func main() {
	configPath := flag.String("config", "analyze.yaml", "path to the YAML run configuration")
	debug := flag.Bool("debug", false, "log the raw UCI exchange")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !*debug {
		log = log.Level(zerolog.InfoLevel)
	}

	if err := run(*configPath, log); err != nil {
		log.Fatal().Err(err).Msg("analysis failed")
	}
}

func run(configPath string, log zerolog.Logger) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	engine, err := stockfish.NewEngine(stockfish.Config{
		Path:            cfg.Engine,
		Depth:           cfg.Depth,
		TurnPerspective: cfg.TurnPerspective,
		Parameters:      cfg.Options,
		Logger:          log,
	})
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	log.Info().
		Int("major_version", engine.MajorVersion()).
		Bool("dev_build", engine.IsDevelopmentBuild()).
		Bool("wdl", engine.HasWDLOption()).
		Msg("engine started")

	if cfg.Bench {
		summary, err := engine.Benchmark(stockfish.BenchmarkParameters{})
		if err != nil {
			return err
		}
		log.Info().Str("summary", summary).Msg("bench")
	}

	fens, err := cfg.positions(engine)
	if err != nil {
		return err
	}

	rep := &report.Report{Engine: cfg.Engine, Depth: engine.Depth()}
	for _, fen := range fens {
		pos, err := analyzePosition(engine, cfg, fen, log)
		if err != nil {
			return err
		}
		rep.Add(pos)
	}

	if cfg.Output == "" {
		out, err := rep.YAML()
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}
	if err := rep.Save(cfg.Output, true); err != nil {
		return err
	}
	log.Info().Str("file", cfg.Output).Int("positions", len(rep.Positions)).Msg("report written")
	return nil
}

// positions resolves the run's input to a list of FENs: a single FEN, the
// start position advanced by a move list, or one FEN per line of a file.
func (cfg *config) positions(engine *stockfish.Engine) ([]string, error) {
	switch {
	case cfg.FENFile != "":
		return loadFENFile(cfg.FENFile)
	case len(cfg.Moves) > 0:
		if err := engine.SetPosition(cfg.Moves...); err != nil {
			return nil, err
		}
		fen, err := engine.GetFENPosition()
		if err != nil {
			return nil, err
		}
		return []string{fen}, nil
	case cfg.FEN != "":
		return []string{cfg.FEN}, nil
	}
	return nil, fmt.Errorf("config names no position: set fen, moves or fen_file")
}

func analyzePosition(engine *stockfish.Engine, cfg *config, fen string, log zerolog.Logger) (*report.Position, error) {
	valid, err := engine.IsFENValid(fen)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, fmt.Errorf("invalid FEN '%s'", fen)
	}
	if err := engine.SetFENPosition(fen, true); err != nil {
		return nil, err
	}

	pos := &report.Position{FEN: fen}

	eval, err := engine.GetEvaluation()
	if err != nil {
		return nil, err
	}
	pos.Score = &report.Score{Type: string(eval.Type), Value: eval.Value}

	if engine.HasWDLOption() {
		wdl, err := engine.GetWDLStats()
		if err != nil {
			return nil, err
		}
		if wdl != nil {
			pos.WDL = report.FormatWDL(wdl.Win, wdl.Draw, wdl.Loss)
		}
	}

	if cfg.TopMoves > 0 {
		moves, err := engine.GetTopMoves(cfg.TopMoves, cfg.Verbose, 0)
		if err != nil {
			return nil, err
		}
		for _, tm := range moves {
			m := report.NewMove(tm.Move, tm.Centipawn, tm.Mate)
			if cfg.Verbose {
				m.Log = &report.LogLine{
					SelDepth: tm.SelDepth,
					Time:     tm.TimeMs,
					Nodes:    tm.Nodes,
					NPS:      tm.NodesPerSecond,
				}
				if tm.WDL != nil {
					m.Log.WDL = report.FormatWDL(tm.WDL.Win, tm.WDL.Draw, tm.WDL.Loss)
				}
				log.Info().
					Str("move", tm.Move).
					Str("nodes", commas.Int(tm.Nodes)).
					Str("nps", commas.Int(tm.NodesPerSecond)).
					Msg("candidate")
			}
			pos.Moves = append(pos.Moves, m)
		}
	}

	if cfg.ShowBoard {
		board, err := engine.GetBoardVisual(true)
		if err != nil {
			return nil, err
		}
		fmt.Fprint(os.Stderr, board)
	}

	return pos, nil
}

func loadConfig(path string) (*config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config file '%s': %v", path, err)
	}
	var cfg config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config file '%s': %v", path, err)
	}
	return &cfg, nil
}

func loadFENFile(filename string) ([]string, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("file '%s': %v", filename, err)
	}
	var fens []string
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fens = append(fens, line)
	}
	return fens, nil
}
