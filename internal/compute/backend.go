package compute

import (
	"fmt"

	"github.com/san-kum/nbody/internal/body"
)

type Backend interface {
	Name() string
	Available() bool
	// BodyForce adds dt*F_i to every body's velocity and returns once all
	// commits are visible.
	BodyForce(s *body.State, dt float32)
	// IntegratePositions advances every position by v*dt and returns once
	// all writes are visible.
	IntegratePositions(s *body.State, dt float32)
	Cleanup()
}

// AutoSelectBackend returns the CUDA backend when a device is present and the
// CPU backend otherwise.
func AutoSelectBackend(layout Layout) Backend {
	cuda := NewCUDABackend(layout)
	if cuda.Available() {
		return cuda
	}
	return NewCPUBackend(layout)
}

// NewBackend builds a backend by name: "auto", "cpu" or "cuda".
func NewBackend(name string, layout Layout) (Backend, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	switch name {
	case "", "auto":
		return AutoSelectBackend(layout), nil
	case "cpu":
		return NewCPUBackend(layout), nil
	case "cuda":
		cuda := NewCUDABackend(layout)
		if !cuda.Available() {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, cuda.Name())
		}
		return cuda, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
}
