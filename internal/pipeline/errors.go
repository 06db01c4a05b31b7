package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoInputClips is returned in strict mode when the source directory has
// no eligible clips. In the default lenient mode an empty directory ends the
// run successfully without touching the published stream.
var ErrNoInputClips = errors.New("no input clips found")

// StageError wraps a failure with the stage it occurred in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %q: %v", e.Stage.Label(), e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
