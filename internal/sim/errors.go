package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates an iteration count or time step that cannot be run.
	ErrInvalidConfig = errors.New("sim: invalid config")

	// ErrInvalidState indicates a NaN or Inf appeared in the body state.
	ErrInvalidState = errors.New("sim: invalid state (NaN or Inf detected)")

	// ErrCanceled indicates the run was interrupted between iterations.
	ErrCanceled = errors.New("sim: run canceled by context")
)

// SimulationError wraps an error with the iteration it occurred after.
type SimulationError struct {
	Iteration int
	Wrapped   error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("iteration %d: %v", e.Iteration, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
