package stockfish

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// process owns the engine subprocess and its two pipe endpoints. All I/O is
// synchronous: commands go out one line at a time, responses come back one
// line at a time, and the caller decides when it has read enough. The only
// goroutine is the exit watcher, which owns no other state.
type process struct {
	cmd      *exec.Cmd
	w        io.WriteCloser
	scanner  *bufio.Scanner
	done     chan struct{}
	quitSent bool
	log      zerolog.Logger
}

func newProcess(path string, log zerolog.Logger) (*process, error) {
	cmd := exec.Command(path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start '%s': %w", path, err)
	}

	p := &process{
		cmd:     cmd,
		w:       stdin,
		scanner: bufio.NewScanner(stdout),
		done:    make(chan struct{}),
		log:     log,
	}
	go func() {
		_ = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

// newProcessFromIO builds a channel over raw endpoints, with no subprocess
// behind it. Tests drive a scripted engine through this.
func newProcessFromIO(r io.Reader, w io.WriteCloser, log zerolog.Logger) *process {
	return &process{
		w:       w,
		scanner: bufio.NewScanner(r),
		done:    make(chan struct{}),
		log:     log,
	}
}

func (p *process) alive() bool {
	if p.cmd == nil {
		return true
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// writeLine sends one command. Writes after quit, or to a process that has
// already exited, are silent no-ops so that cleanup paths stay
// unconditionally safe.
func (p *process) writeLine(line string) error {
	if p.quitSent || !p.alive() {
		return nil
	}
	if p.w == nil {
		return ErrPipeClosed
	}
	p.log.Debug().Str("line", line).Msg("uci send")
	if _, err := fmt.Fprintln(p.w, line); err != nil {
		return fmt.Errorf("%w: %v", ErrPipeClosed, err)
	}
	if line == "quit" {
		p.quitSent = true
	}
	return nil
}

// readLine blocks until the engine emits one line, returned with surrounding
// whitespace trimmed. Reading from a process that has exited, or hitting end
// of stream, reports ErrEngineCrashed.
func (p *process) readLine() (string, error) {
	if !p.alive() {
		return "", ErrEngineCrashed
	}
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrEngineCrashed, err)
		}
		return "", ErrEngineCrashed
	}
	line := strings.TrimSpace(p.scanner.Text())
	p.log.Debug().Str("line", line).Msg("uci recv")
	return line, nil
}

// close sends quit (at most once over the process lifetime), closes the
// input pipe and waits for the subprocess to exit. Safe to call repeatedly
// and after a crash.
func (p *process) close() error {
	_ = p.writeLine("quit")
	if p.w != nil {
		_ = p.w.Close()
	}
	if p.cmd != nil {
		<-p.done
	}
	return nil
}
