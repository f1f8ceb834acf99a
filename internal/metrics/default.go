package metrics

import "github.com/san-kum/nbody/internal/sim"

// MaxEnergyBodies caps the body count for which energy drift is tracked; the
// energy sum is itself O(N^2) per observation.
const MaxEnergyBodies = 1 << 13

func Default(numBodies int) []sim.Metric {
	m := []sim.Metric{
		NewMomentumDrift(),
		NewStability(10),
	}
	if numBodies <= MaxEnergyBodies {
		m = append(m, NewEnergyDrift())
	}
	return m
}
