package body

import (
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"
)

// FieldsPerBody is the number of float32 values stored per body.
const FieldsPerBody = 6

type Body struct {
	X, Y, Z    float32
	VX, VY, VZ float32
}

type State struct {
	bodies []Body
}

func New(n int) *State {
	if n < 0 {
		n = 0
	}
	return &State{bodies: make([]Body, n)}
}

// FromFloats builds a State from the flat x,y,z,vx,vy,vz layout.
func FromFloats(data []float32) (*State, error) {
	if len(data)%FieldsPerBody != 0 {
		return nil, fmt.Errorf("%w: got %d values", ErrLayout, len(data))
	}
	s := New(len(data) / FieldsPerBody)
	for i := range s.bodies {
		off := i * FieldsPerBody
		s.bodies[i] = Body{
			X: data[off], Y: data[off+1], Z: data[off+2],
			VX: data[off+3], VY: data[off+4], VZ: data[off+5],
		}
	}
	return s, nil
}

func (s *State) Len() int { return len(s.bodies) }

func (s *State) At(i int) Body { return s.bodies[i] }

func (s *State) Set(i int, b Body) { s.bodies[i] = b }

// Bodies returns the backing slice. Writes through it mutate the state.
func (s *State) Bodies() []Body { return s.bodies }

func (s *State) Clone() *State {
	c := &State{bodies: make([]Body, len(s.bodies))}
	copy(c.bodies, s.bodies)
	return c
}

// Floats returns a copy of the state in the flat x,y,z,vx,vy,vz layout.
func (s *State) Floats() []float32 {
	out := make([]float32, len(s.bodies)*FieldsPerBody)
	for i, b := range s.bodies {
		off := i * FieldsPerBody
		out[off] = b.X
		out[off+1] = b.Y
		out[off+2] = b.Z
		out[off+3] = b.VX
		out[off+4] = b.VY
		out[off+5] = b.VZ
	}
	return out
}

func (s *State) IsValid() bool {
	for _, b := range s.bodies {
		for _, v := range [...]float32{b.X, b.Y, b.Z, b.VX, b.VY, b.VZ} {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return false
			}
		}
	}
	return true
}

// AddVelocity atomically adds (dvx, dvy, dvz) to body i's velocity. Several
// goroutines may commit to the same body at once.
func (s *State) AddVelocity(i int, dvx, dvy, dvz float32) {
	b := &s.bodies[i]
	atomicAddFloat32(&b.VX, dvx)
	atomicAddFloat32(&b.VY, dvy)
	atomicAddFloat32(&b.VZ, dvz)
}

func atomicAddFloat32(addr *float32, delta float32) {
	bits := (*uint32)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint32(bits)
		next := math.Float32bits(math.Float32frombits(old) + delta)
		if atomic.CompareAndSwapUint32(bits, old, next) {
			return
		}
	}
}
