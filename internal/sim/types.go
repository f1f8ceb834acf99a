package sim

import (
	"time"

	"github.com/san-kum/nbody/internal/body"
)

const (
	DefaultDt         = 0.01
	DefaultIterations = 10
)

type Metric interface {
	Name() string
	Observe(s *body.State, iteration int)
	Value() float64
	Reset()
}

type Observer interface {
	OnIteration(s *body.State, iteration int, elapsed time.Duration)
}

type Config struct {
	Dt            float32
	Iterations    int
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:         DefaultDt,
		Iterations: DefaultIterations,
	}
}

type Result struct {
	Bodies            int
	Iterations        int
	IterationTimes    []time.Duration
	MeanIterationTime time.Duration
	// Throughput is 1e-9 * N^2 / mean iteration seconds: billions of pair
	// interactions per second.
	Throughput float64
	Metrics    map[string]float64
	Errors     []error
}

// Throughput returns billions of interactions per second for n bodies at the
// given mean iteration time, or 0 when the time is not positive.
func Throughput(n int, mean time.Duration) float64 {
	secs := mean.Seconds()
	if secs <= 0 {
		return 0
	}
	return 1e-9 * float64(n) * float64(n) / secs
}
