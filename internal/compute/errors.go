package compute

import "errors"

var (
	// ErrLayout indicates a decomposition whose index arithmetic would not be exact.
	ErrLayout = errors.New("compute: invalid layout")

	// ErrUnknownBackend indicates a backend name with no implementation.
	ErrUnknownBackend = errors.New("compute: unknown backend")

	// ErrUnavailable indicates a backend that cannot run on this machine.
	ErrUnavailable = errors.New("compute: backend not available")
)
