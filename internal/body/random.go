package body

import "golang.org/x/exp/rand"

// Randomize fills every position and velocity component with a uniform value
// in [-1, 1], in body-index order x, y, z, vx, vy, vz. The same seed always
// produces the same state.
func Randomize(s *State, seed uint64) {
	rng := rand.New(rand.NewSource(seed))
	next := func() float32 { return 2*rng.Float32() - 1 }
	for i := range s.bodies {
		b := &s.bodies[i]
		b.X, b.Y, b.Z = next(), next(), next()
		b.VX, b.VY, b.VZ = next(), next(), next()
	}
}
