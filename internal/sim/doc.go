// Package sim sequences the stages of an N-body run.
//
// Each iteration is one [Simulator.Step]:
//
//	force stage (all groups) -> join -> position stage (all bodies) -> join
//
// The joins are the global barriers: the position stage observes every
// velocity commit of the same iteration, and the next force stage observes
// every position written by the previous one. Iterations never overlap.
//
// # Example
//
//	backend := compute.NewCPUBackend(compute.DefaultLayout())
//	s := sim.New(backend)
//	result, err := s.Run(ctx, state, sim.DefaultConfig())
//
// # Thread Safety
//
// A Simulator may be reused across runs but must not run two states at once.
package sim
