package stockfish

import (
	"errors"
	"fmt"
)

var (
	// ErrPipeClosed is returned when a command cannot be written because the
	// engine's input pipe is unavailable.
	ErrPipeClosed = errors.New("stockfish: engine pipe closed")

	// ErrEngineCrashed is returned when a response is needed but the engine
	// process has already exited.
	ErrEngineCrashed = errors.New("stockfish: engine process exited")

	// ErrInvalidArgument is returned for caller input that breaks an
	// operation's contract: unknown option names, non-positive counts,
	// malformed squares, wrongly typed option values.
	ErrInvalidArgument = errors.New("stockfish: invalid argument")

	// ErrUnsupportedFeature is returned when the installed engine build
	// lacks the capability an operation needs.
	ErrUnsupportedFeature = errors.New("stockfish: engine build does not support this feature")
)

// IllegalMoveError reports a move that is not legal in the position it was
// applied to.
type IllegalMoveError struct {
	Move string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("stockfish: illegal move '%s' in current position", e.Move)
}

// AmbiguousMoveError reports human notation that resolves to more than one
// source square.
type AmbiguousMoveError struct {
	Notation string
	Matches  []string
}

func (e *AmbiguousMoveError) Error() string {
	return fmt.Sprintf("stockfish: notation '%s' matches multiple moves %v", e.Notation, e.Matches)
}

// ProtocolError reports engine output that violates a protocol invariant.
// It signals a bug in the engine or in this client, not a recoverable
// condition.
type ProtocolError struct {
	Reason string
	Line   string
}

func (e *ProtocolError) Error() string {
	if e.Line == "" {
		return fmt.Sprintf("stockfish: protocol violation: %s", e.Reason)
	}
	return fmt.Sprintf("stockfish: protocol violation: %s: %q", e.Reason, e.Line)
}
