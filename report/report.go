// Package report defines the YAML-marshalable records the analysis CLI
// emits: one entry per analyzed position, carrying the engine's score and
// its ranked candidate moves.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Report struct {
	Engine    string      `yaml:"engine,omitempty"`
	Depth     int         `yaml:"depth,omitempty"`
	Positions []*Position `yaml:"positions"`
}

type Position struct {
	FEN   string `yaml:"fen"`
	Score *Score `yaml:"score,omitempty"`
	WDL   string `yaml:"wdl,omitempty"`
	Moves []*Move `yaml:"moves,omitempty"`
}

// Score is a tagged engine evaluation: type "cp" with a centipawn value,
// or type "mate" with a distance in plies.
type Score struct {
	Type  string `yaml:"type"`
	Value int    `yaml:"value"`
}

type Move struct {
	Move string   `yaml:"move"`
	CP   *int     `yaml:"cp,omitempty"`
	Mate *int     `yaml:"mate,omitempty"`
	TS   int64    `yaml:"ts,omitempty"`
	Log  *LogLine `yaml:"log,omitempty,flow"`
}

// LogLine records the diagnostic fields of the search line that produced a
// move, for verbose reports.
type LogLine struct {
	SelDepth int    `yaml:"seldepth,omitempty"`
	Time     int    `yaml:"time,omitempty"`
	Nodes    int    `yaml:"nodes,omitempty"`
	NPS      int    `yaml:"nps,omitempty"`
	WDL      string `yaml:"wdl,omitempty"`
}

func (r *Report) Add(pos *Position) {
	r.Positions = append(r.Positions, pos)
}

// NewMove stamps a move record with the current time.
func NewMove(move string, cp, mate *int) *Move {
	return &Move{Move: move, CP: cp, Mate: mate, TS: time.Now().Unix()}
}

// FormatWDL renders a win/draw/loss triple in the compact "w/d/l" form
// used throughout the report.
func FormatWDL(win, draw, loss int) string {
	return fmt.Sprintf("%d/%d/%d", win, draw, loss)
}

func (r *Report) YAML() (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Save writes the report to filename. With backup set, an existing file is
// renamed aside with a timestamp suffix instead of being overwritten.
func (r *Report) Save(filename string, backup bool) error {
	data, err := r.YAML()
	if err != nil {
		return err
	}
	if backup && fileExists(filename) {
		ext := filepath.Ext(filename)
		backupFilename := fmt.Sprintf("%s-%d%s.backup", strings.TrimSuffix(filename, ext), time.Now().UnixMilli(), ext)
		if err := os.Rename(filename, backupFilename); err != nil {
			return fmt.Errorf("error creating backup file '%s': %v", backupFilename, err)
		}
	}
	if err := os.WriteFile(filename, []byte(data), 0644); err != nil {
		return fmt.Errorf("write file '%s': %v", filename, err)
	}
	return nil
}

func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}
