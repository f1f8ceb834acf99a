package metrics

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/nbody/internal/body"
)

// Momentum returns the total momentum of unit-mass bodies.
func Momentum(s *body.State) mgl64.Vec3 {
	var p mgl64.Vec3
	for i := range s.Bodies() {
		p = p.Add(velocity(&s.Bodies()[i]))
	}
	return p
}

// Centroid returns the mean body position.
func Centroid(s *body.State) mgl32.Vec3 {
	if s.Len() == 0 {
		return mgl32.Vec3{}
	}
	var c mgl64.Vec3
	for i := range s.Bodies() {
		c = c.Add(position(&s.Bodies()[i]))
	}
	c = c.Mul(1 / float64(s.Len()))
	return mgl32.Vec3{float32(c[0]), float32(c[1]), float32(c[2])}
}

// MomentumDrift is the largest |P - P0| seen. Pairwise forces cancel, so it
// measures accumulated rounding in the force stage.
type MomentumDrift struct {
	initial  mgl64.Vec3
	maxDrift float64
	samples  int
}

func NewMomentumDrift() *MomentumDrift {
	return &MomentumDrift{}
}

func (m *MomentumDrift) Name() string { return "momentum_drift" }

func (m *MomentumDrift) Observe(s *body.State, iteration int) {
	p := Momentum(s)
	if m.samples == 0 {
		m.initial = p
	}
	m.samples++
	if d := p.Sub(m.initial).Len(); d > m.maxDrift {
		m.maxDrift = d
	}
}

func (m *MomentumDrift) Value() float64 { return m.maxDrift }

func (m *MomentumDrift) Reset() {
	m.initial = mgl64.Vec3{}
	m.maxDrift = 0
	m.samples = 0
}
