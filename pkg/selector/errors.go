package selector

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is returned when the user dismisses the selector (ESC)
	ErrCancelled = errors.New("cancelled by user")
)

// ProcessError is returned when the selector process cannot be started,
// exits abnormally or runs past its timeout
type ProcessError struct {
	Program string
	Err     error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("selector %s failed: %v", e.Program, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsCancelled checks whether err comes from the user dismissing the menu
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
