//go:build !cuda

package compute

import "github.com/san-kum/nbody/internal/body"

type CUDABackend struct {
	cpu *CPUBackend
}

func NewCUDABackend(layout Layout) *CUDABackend {
	return &CUDABackend{cpu: NewCPUBackend(layout)}
}

func (c *CUDABackend) Name() string    { return "cuda (not available)" }
func (c *CUDABackend) Available() bool { return false }
func (c *CUDABackend) Cleanup()        {}

func (c *CUDABackend) BodyForce(s *body.State, dt float32) {
	c.cpu.BodyForce(s, dt)
}

func (c *CUDABackend) IntegratePositions(s *body.State, dt float32) {
	c.cpu.IntegratePositions(s, dt)
}
