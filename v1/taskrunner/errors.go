package taskrunner

import (
	"errors"
	"fmt"
)

var (
	// ErrPanic wraps a value recovered from a panicking task.
	ErrPanic = errors.New("taskrunner: task panicked")

	// ErrStopped is delivered to tasks started after Stop.
	ErrStopped = errors.New("taskrunner: runner stopped")
)

func panicError(v any) error {
	if err, ok := v.(error); ok {
		return fmt.Errorf("%w: %w", ErrPanic, err)
	}
	return fmt.Errorf("%w: %v", ErrPanic, v)
}
