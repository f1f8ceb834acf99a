//go:build cuda

package compute

/*
#cgo CFLAGS: -I/opt/cuda/include
#cgo LDFLAGS: -L/opt/cuda/lib64 -L${SRCDIR} -lcudart -lkernels -lstdc++
#include <stdlib.h>

extern int cuda_device_count();
extern const char* cuda_device_name_get();
extern void nbody_body_force(float* bodies, int n, float dt, int tile_width, int group_size, int fanout);
extern void nbody_integrate(float* bodies, int n, float dt, int block_size);
extern void nbody_release();
*/
import "C"
import (
	"unsafe"

	"github.com/san-kum/nbody/internal/body"
)

type CUDABackend struct {
	layout     Layout
	available  bool
	deviceName string
	cpu        *CPUBackend
}

func NewCUDABackend(layout Layout) *CUDABackend {
	count := int(C.cuda_device_count())
	name := ""
	if count > 0 {
		name = C.GoString(C.cuda_device_name_get())
	}
	return &CUDABackend{
		layout:     layout,
		available:  count > 0 && layout.GroupSize <= 1024,
		deviceName: name,
		cpu:        NewCPUBackend(layout),
	}
}

func (c *CUDABackend) Name() string {
	if c.available {
		return "cuda (" + c.deviceName + ")"
	}
	return "cuda (not available)"
}

func (c *CUDABackend) Available() bool { return c.available }

func (c *CUDABackend) Cleanup() {
	if c.available {
		C.nbody_release()
	}
}

// bodyPtr relies on body.Body being six packed float32 fields, the same
// layout the kernels use.
func bodyPtr(s *body.State) *C.float {
	return (*C.float)(unsafe.Pointer(&s.Bodies()[0].X))
}

func (c *CUDABackend) BodyForce(s *body.State, dt float32) {
	if !c.available {
		c.cpu.BodyForce(s, dt)
		return
	}
	if s.Len() == 0 {
		return
	}
	C.nbody_body_force(bodyPtr(s), C.int(s.Len()), C.float(dt),
		C.int(c.layout.TileWidth), C.int(c.layout.GroupSize), C.int(c.layout.Fanout))
}

func (c *CUDABackend) IntegratePositions(s *body.State, dt float32) {
	if !c.available {
		c.cpu.IntegratePositions(s, dt)
		return
	}
	if s.Len() == 0 {
		return
	}
	C.nbody_integrate(bodyPtr(s), C.int(s.Len()), C.float(dt), C.int(c.layout.TileWidth))
}
