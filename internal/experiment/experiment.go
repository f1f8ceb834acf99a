// Package experiment runs one configured simulation end to end: seeded
// initial bodies, the timed iterations and the post-run check.
package experiment

import (
	"context"
	"errors"

	"github.com/san-kum/nbody/internal/body"
	"github.com/san-kum/nbody/internal/compute"
	"github.com/san-kum/nbody/internal/config"
	"github.com/san-kum/nbody/internal/sim"
	"github.com/san-kum/nbody/internal/verify"
)

var ErrNotSetup = errors.New("experiment: not setup")

type Experiment struct {
	cfg       *config.Config
	backend   compute.Backend
	simulator *sim.Simulator
	initial   *body.State
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{cfg: cfg}
}

// Setup checks the configuration and draws the initial bodies. A nil
// backend is resolved from the configuration.
func (e *Experiment) Setup(backend compute.Backend, metrics []sim.Metric) error {
	if err := e.cfg.Check(); err != nil {
		return err
	}
	if backend == nil {
		b, err := compute.NewBackend(e.cfg.Backend, e.cfg.ComputeLayout())
		if err != nil {
			return err
		}
		backend = b
	}

	e.backend = backend
	e.simulator = sim.New(backend)
	for _, m := range metrics {
		e.simulator.AddMetric(m)
	}

	e.initial = body.New(e.cfg.NumBodies())
	body.Randomize(e.initial, e.cfg.Seed)
	return nil
}

type Outcome struct {
	Initial *body.State
	Final   *body.State
	Result  *sim.Result
}

// Run simulates a copy of the initial bodies; the initial state is kept for
// verification.
func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	if e.simulator == nil {
		return nil, ErrNotSetup
	}

	final := e.initial.Clone()
	result, err := e.simulator.Run(ctx, final, e.cfg.SimConfig())
	if err != nil {
		return nil, err
	}
	return &Outcome{Initial: e.initial, Final: final, Result: result}, nil
}

// Verify checks throughput when the configuration assesses performance and
// accuracy otherwise.
func (e *Experiment) Verify(o *Outcome) (*verify.Report, error) {
	n := o.Final.Len()
	if e.cfg.Assess {
		return verify.CheckPerformance(n, o.Result.Iterations, o.Result.Throughput, e.cfg.MinThroughput, e.cfg.Salt)
	}
	return verify.CheckAccuracy(o.Initial, o.Final, e.cfg.Dt, e.cfg.Iterations, e.cfg.Tolerance, o.Result.Throughput)
}

func (e *Experiment) Config() *config.Config   { return e.cfg }
func (e *Experiment) Backend() compute.Backend { return e.backend }

// Close releases the backend.
func (e *Experiment) Close() {
	if e.backend != nil {
		e.backend.Cleanup()
	}
}
