package metrics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/nbody/internal/body"
	"github.com/san-kum/nbody/internal/compute"
)

// Energy returns the kinetic plus softened potential energy of unit-mass bodies.
func Energy(s *body.State) float64 {
	bodies := s.Bodies()
	eps := float64(compute.Softening)
	ke, pe := 0.0, 0.0

	for i := range bodies {
		vi := velocity(&bodies[i])
		ke += 0.5 * vi.Dot(vi)

		pi := position(&bodies[i])
		for j := i + 1; j < len(bodies); j++ {
			d := position(&bodies[j]).Sub(pi)
			pe -= 1 / math.Sqrt(d.Dot(d)+eps)
		}
	}

	return ke + pe
}

func position(b *body.Body) mgl64.Vec3 {
	return mgl64.Vec3{float64(b.X), float64(b.Y), float64(b.Z)}
}

func velocity(b *body.Body) mgl64.Vec3 {
	return mgl64.Vec3{float64(b.VX), float64(b.VY), float64(b.VZ)}
}

// EnergyDrift tracks the largest relative deviation from the first observed energy.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(s *body.State, iteration int) {
	energy := Energy(s)

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
