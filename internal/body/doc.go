// Package body holds the shared per-body state of an N-body run.
//
// A [State] is a flat, fixed-length array of [Body] records:
//
//   - positions and velocities are 32-bit floats, laid out x, y, z, vx, vy, vz
//   - the body count is fixed by [New] and never changes
//   - records are mutated in place by the compute stages
//
// # Thread Safety
//
// Velocities may be committed concurrently through [State.AddVelocity], which
// performs an atomic float add per component. Every other mutation assumes a
// single writer per body per stage; ordering between stages is the caller's
// responsibility.
package body
