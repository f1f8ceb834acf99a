package body

import "errors"

var (
	// ErrLayout indicates a flat buffer that is not a whole number of bodies.
	ErrLayout = errors.New("body: buffer length is not a multiple of 6")

	// ErrInvalidState indicates a NaN or Inf in a position or velocity.
	ErrInvalidState = errors.New("body: invalid state (NaN or Inf detected)")
)
