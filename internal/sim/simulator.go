package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/nbody/internal/body"
	"github.com/san-kum/nbody/internal/compute"
)

type Simulator struct {
	backend   compute.Backend
	metrics   []Metric
	observers []Observer
}

func New(backend compute.Backend) *Simulator {
	return &Simulator{
		backend:   backend,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Backend() compute.Backend { return s.backend }

// Step runs one iteration. Each backend call returns only after its stage
// has drained, so the position stage never starts before every velocity
// commit is visible.
func (s *Simulator) Step(st *body.State, dt float32) {
	s.backend.BodyForce(st, dt)
	s.backend.IntegratePositions(st, dt)
}

// Run advances st in place for cfg.Iterations iterations. The context is
// checked between iterations only; a started iteration always completes.
func (s *Simulator) Run(ctx context.Context, st *body.State, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	n := st.Len()
	result := &Result{
		Bodies:         n,
		IterationTimes: make([]time.Duration, 0, cfg.Iterations),
		Metrics:        make(map[string]float64),
		Errors:         make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
		m.Observe(st, 0)
	}

	var total time.Duration
	for i := 0; i < cfg.Iterations; i++ {
		select {
		case <-ctx.Done():
			s.finish(result, total)
			return result, fmt.Errorf("%w: %v", ErrCanceled, ctx.Err())
		default:
		}

		start := time.Now()
		s.Step(st, cfg.Dt)
		elapsed := time.Since(start)

		total += elapsed
		result.IterationTimes = append(result.IterationTimes, elapsed)
		result.Iterations++

		for _, m := range s.metrics {
			m.Observe(st, i+1)
		}
		for _, obs := range s.observers {
			obs.OnIteration(st, i+1, elapsed)
		}

		if cfg.ValidateState && !st.IsValid() {
			err := &SimulationError{Iteration: i + 1, Wrapped: ErrInvalidState}
			result.Errors = append(result.Errors, err)
			break
		}
	}

	s.finish(result, total)
	return result, nil
}

func (s *Simulator) finish(result *Result, total time.Duration) {
	if result.Iterations > 0 {
		result.MeanIterationTime = total / time.Duration(result.Iterations)
	}
	result.Throughput = Throughput(result.Bodies, result.MeanIterationTime)

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Iterations <= 0 {
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidConfig, cfg.Iterations)
	}
	dt := float64(cfg.Dt)
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
		return fmt.Errorf("%w: dt must be finite and non-negative, got %f", ErrInvalidConfig, dt)
	}
	return nil
}
