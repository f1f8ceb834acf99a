// Package verify checks a finished run, either against a float64 reference
// of the same iterations or against a throughput floor.
package verify

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/dgravesa/go-parallel/parallel"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/nbody/internal/body"
	"github.com/san-kum/nbody/internal/compute"
)

var (
	ErrMismatch   = errors.New("verify: initial and final states differ in size")
	ErrInaccurate = errors.New("verify: result outside tolerance")
	ErrTooSlow    = errors.New("verify: throughput below minimum")
)

type Mode string

const (
	ModeAccuracy    Mode = "accuracy"
	ModePerformance Mode = "performance"
)

type Report struct {
	Mode          Mode    `json:"mode"`
	Bodies        int     `json:"bodies"`
	Iterations    int     `json:"iterations"`
	Throughput    float64 `json:"throughput"`
	Salt          int     `json:"salt"`
	PositionError float64 `json:"position_error,omitempty"`
	VelocityError float64 `json:"velocity_error,omitempty"`
	Tolerance     float64 `json:"tolerance,omitempty"`
	MinThroughput float64 `json:"min_throughput,omitempty"`
	Passed        bool    `json:"passed"`
}

// Summary is the one-line throughput report.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d Bodies: average %0.3f Billion Interactions / second", r.Bodies, r.Throughput)
}

type Reference struct {
	Pos []mgl64.Vec3
	Vel []mgl64.Vec3
}

// Simulate replays iterations of the force and position stages serially per
// body in float64, starting from initial.
func Simulate(initial *body.State, dt float32, iterations int) *Reference {
	n := initial.Len()
	ref := &Reference{Pos: make([]mgl64.Vec3, n), Vel: make([]mgl64.Vec3, n)}
	for i, b := range initial.Bodies() {
		ref.Pos[i] = mgl64.Vec3{float64(b.X), float64(b.Y), float64(b.Z)}
		ref.Vel[i] = mgl64.Vec3{float64(b.VX), float64(b.VY), float64(b.VZ)}
	}

	h := float64(dt)
	eps := float64(compute.Softening)
	exec := parallel.WithNumGoroutines(runtime.GOMAXPROCS(0))

	for it := 0; it < iterations; it++ {
		exec.For(n, func(i, _ int) {
			var f mgl64.Vec3
			pi := ref.Pos[i]
			for j := 0; j < n; j++ {
				d := ref.Pos[j].Sub(pi)
				d2 := d.Dot(d) + eps
				f = f.Add(d.Mul(1 / (d2 * math.Sqrt(d2))))
			}
			ref.Vel[i] = ref.Vel[i].Add(f.Mul(h))
		})
		exec.For(n, func(i, _ int) {
			ref.Pos[i] = ref.Pos[i].Add(ref.Vel[i].Mul(h))
		})
	}
	return ref
}

// Errors returns the norm-relative position and velocity error of s.
func (r *Reference) Errors(s *body.State) (pos, vel float64) {
	var dp, np, dv, nv float64
	for i, b := range s.Bodies() {
		p := mgl64.Vec3{float64(b.X), float64(b.Y), float64(b.Z)}
		v := mgl64.Vec3{float64(b.VX), float64(b.VY), float64(b.VZ)}

		e := p.Sub(r.Pos[i])
		dp += e.Dot(e)
		np += r.Pos[i].Dot(r.Pos[i])

		e = v.Sub(r.Vel[i])
		dv += e.Dot(e)
		nv += r.Vel[i].Dot(r.Vel[i])
	}
	return relative(dp, np), relative(dv, nv)
}

func relative(diff, norm float64) float64 {
	if norm == 0 {
		return math.Sqrt(diff)
	}
	return math.Sqrt(diff / norm)
}

// CheckAccuracy compares final against a float64 replay of initial. The
// report is returned even when the check fails.
func CheckAccuracy(initial, final *body.State, dt float32, iterations int, tol float64, throughput float64) (*Report, error) {
	if initial.Len() != final.Len() {
		return nil, fmt.Errorf("%w: %d vs %d", ErrMismatch, initial.Len(), final.Len())
	}

	pos, vel := Simulate(initial, dt, iterations).Errors(final)
	r := &Report{
		Mode:          ModeAccuracy,
		Bodies:        final.Len(),
		Iterations:    iterations,
		Throughput:    throughput,
		PositionError: pos,
		VelocityError: vel,
		Tolerance:     tol,
	}

	if math.IsNaN(pos) || math.IsNaN(vel) || pos > tol || vel > tol {
		return r, fmt.Errorf("%w: position error %.3e, velocity error %.3e, tolerance %.1e", ErrInaccurate, pos, vel, tol)
	}
	r.Passed = true
	return r, nil
}

// CheckPerformance checks throughput against a floor. The salt is carried
// into the report untouched.
func CheckPerformance(n int, iterations int, throughput, min float64, salt int) (*Report, error) {
	r := &Report{
		Mode:          ModePerformance,
		Bodies:        n,
		Iterations:    iterations,
		Throughput:    throughput,
		Salt:          salt,
		MinThroughput: min,
	}

	if math.IsNaN(throughput) || math.IsInf(throughput, 0) || throughput <= 0 || throughput < min {
		return r, fmt.Errorf("%w: %.3f < %.3f billion interactions / second", ErrTooSlow, throughput, min)
	}
	r.Passed = true
	return r, nil
}
