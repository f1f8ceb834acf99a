package metrics

import (
	"github.com/san-kum/nbody/internal/body"
)

// Stability is the fraction of observations in which every body stayed
// within threshold of the origin on each axis.
type Stability struct {
	name       string
	threshold  float32
	violations int
	samples    int
}

func NewStability(threshold float32) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(st *body.State, iteration int) {
	s.samples++
	for _, b := range st.Bodies() {
		if abs32(b.X) > s.threshold || abs32(b.Y) > s.threshold || abs32(b.Z) > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
