package verify

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/san-kum/nbody/internal/body"
	"github.com/san-kum/nbody/internal/compute"
	"github.com/san-kum/nbody/internal/sim"
)

func runCPU(t *testing.T, s *body.State, cfg sim.Config) *sim.Result {
	t.Helper()
	result, err := sim.New(compute.NewCPUBackend(compute.DefaultLayout())).Run(context.Background(), s, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return result
}

func TestCheckAccuracy_Pass(t *testing.T) {
	initial := body.New(256)
	body.Randomize(initial, 11)
	final := initial.Clone()

	cfg := sim.Config{Dt: 0.01, Iterations: 3}
	result := runCPU(t, final, cfg)

	r, err := CheckAccuracy(initial, final, cfg.Dt, cfg.Iterations, 1e-2, result.Throughput)
	if err != nil {
		t.Fatalf("accuracy check failed: %v", err)
	}
	if !r.Passed || r.Mode != ModeAccuracy {
		t.Errorf("unexpected report %+v", r)
	}
}

func TestCheckAccuracy_DetectsCorruption(t *testing.T) {
	initial := body.New(64)
	body.Randomize(initial, 3)
	final := initial.Clone()
	runCPU(t, final, sim.Config{Dt: 0.01, Iterations: 2})

	bodies := final.Bodies()
	for i := range bodies {
		bodies[i].VX *= 1.5
		bodies[i].VY *= 1.5
		bodies[i].VZ *= 1.5
	}

	r, err := CheckAccuracy(initial, final, 0.01, 2, 1e-2, 1)
	if !errors.Is(err, ErrInaccurate) {
		t.Fatalf("expected ErrInaccurate, got %v", err)
	}
	if r == nil || r.Passed {
		t.Error("expected a failing report")
	}
}

func TestCheckAccuracy_Mismatch(t *testing.T) {
	_, err := CheckAccuracy(body.New(2), body.New(3), 0.01, 1, 1e-3, 1)
	if !errors.Is(err, ErrMismatch) {
		t.Errorf("expected ErrMismatch, got %v", err)
	}
}

func TestSimulate_TwoBodies(t *testing.T) {
	s := body.New(2)
	s.Set(0, body.Body{X: -0.5})
	s.Set(1, body.Body{X: 0.5})

	ref := Simulate(s, 0.01, 1)

	want := 0.01 / math.Pow(1+float64(compute.Softening), 1.5)
	if math.Abs(ref.Vel[0][0]-want) > 1e-12 {
		t.Errorf("vx = %v, want %v", ref.Vel[0][0], want)
	}
	if math.Abs(ref.Pos[0][0]-(-0.5+want*0.01)) > 1e-12 {
		t.Errorf("x = %v, want %v", ref.Pos[0][0], -0.5+want*0.01)
	}
}

func TestCheckPerformance(t *testing.T) {
	tests := []struct {
		name       string
		throughput float64
		min        float64
		ok         bool
	}{
		{"above floor", 2.5, 1, true},
		{"no floor", 0.01, 0, true},
		{"below floor", 0.5, 1, false},
		{"zero", 0, 0, false},
		{"infinite", math.Inf(1), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := CheckPerformance(4096, 10, tt.throughput, tt.min, 42)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrTooSlow) {
				t.Errorf("expected ErrTooSlow, got %v", err)
			}
			if r.Salt != 42 {
				t.Errorf("salt not carried: %d", r.Salt)
			}
		})
	}
}

func TestReportSummary(t *testing.T) {
	r := &Report{Bodies: 4096, Throughput: sim.Throughput(4096, 10*time.Millisecond)}
	want := "4096 Bodies: average 1.678 Billion Interactions / second"
	if got := r.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}
