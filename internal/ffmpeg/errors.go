package ffmpeg

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTimeout marks an engine invocation that was killed because its context
// deadline expired.
var ErrTimeout = errors.New("engine invocation timed out")

// Error is the failure of a single engine invocation. It carries the tail of
// the engine's stderr so operators can diagnose the failure from logs or the
// status endpoint without re-running the command.
type Error struct {
	Op       string // "normalize", "concat", "segment"
	ExitCode int
	Stderr   []string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("ffmpeg %s failed (exit %d): %v", e.Op, e.ExitCode, e.Err)
	if len(e.Stderr) > 0 {
		msg += "\n" + strings.Join(e.Stderr, "\n")
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}
