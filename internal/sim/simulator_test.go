package sim_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/nbody/internal/body"
	"github.com/san-kum/nbody/internal/compute"
	"github.com/san-kum/nbody/internal/sim"
)

// recordingBackend logs stage calls around a real CPU backend.
type recordingBackend struct {
	*compute.CPUBackend
	mu    sync.Mutex
	calls []string
}

func (r *recordingBackend) BodyForce(s *body.State, dt float32) {
	r.record("force")
	r.CPUBackend.BodyForce(s, dt)
}

func (r *recordingBackend) IntegratePositions(s *body.State, dt float32) {
	r.record("integrate")
	r.CPUBackend.IntegratePositions(s, dt)
}

func (r *recordingBackend) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

type countingObserver struct {
	iterations []int
}

func (c *countingObserver) OnIteration(s *body.State, iteration int, elapsed time.Duration) {
	c.iterations = append(c.iterations, iteration)
}

type bodyCount struct{ last int }

func (b *bodyCount) Name() string                         { return "bodies" }
func (b *bodyCount) Observe(s *body.State, iteration int) { b.last = s.Len() }
func (b *bodyCount) Value() float64                       { return float64(b.last) }
func (b *bodyCount) Reset()                               { b.last = 0 }

func fieldError(a, b *body.State) (pos, vel float64) {
	var dp, np, dv, nv float64
	for i, x := range a.Bodies() {
		y := b.At(i)
		for _, pair := range [][2]float32{{x.X, y.X}, {x.Y, y.Y}, {x.Z, y.Z}} {
			d := float64(pair[0] - pair[1])
			dp += d * d
			np += float64(pair[1]) * float64(pair[1])
		}
		for _, pair := range [][2]float32{{x.VX, y.VX}, {x.VY, y.VY}, {x.VZ, y.VZ}} {
			d := float64(pair[0] - pair[1])
			dv += d * d
			nv += float64(pair[1]) * float64(pair[1])
		}
	}
	return math.Sqrt(dp / np), math.Sqrt(dv / nv)
}

var _ = Describe("Simulator", func() {
	var (
		ctx     context.Context
		backend *compute.CPUBackend
		s       *sim.Simulator
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend = compute.NewCPUBackend(compute.DefaultLayout())
		s = sim.New(backend)
	})

	Describe("config validation", func() {
		DescribeTable("rejects unrunnable configs",
			func(cfg sim.Config) {
				_, err := s.Run(ctx, body.New(4), cfg)
				Expect(err).To(MatchError(sim.ErrInvalidConfig))
			},
			Entry("zero iterations", sim.Config{Dt: 0.01, Iterations: 0}),
			Entry("negative iterations", sim.Config{Dt: 0.01, Iterations: -1}),
			Entry("negative dt", sim.Config{Dt: -0.01, Iterations: 10}),
			Entry("NaN dt", sim.Config{Dt: float32(math.NaN()), Iterations: 10}),
			Entry("Inf dt", sim.Config{Dt: float32(math.Inf(1)), Iterations: 10}),
		)

		It("accepts a zero time step", func() {
			_, err := s.Run(ctx, body.New(4), sim.Config{Dt: 0, Iterations: 1})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	It("alternates force and position stages without interleaving", func() {
		rec := &recordingBackend{CPUBackend: backend}
		st := body.New(200)
		body.Randomize(st, 1)

		_, err := sim.New(rec).Run(ctx, st, sim.Config{Dt: 0.01, Iterations: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.calls).To(Equal([]string{
			"force", "integrate",
			"force", "integrate",
			"force", "integrate",
		}))
	})

	It("pulls two bodies at rest toward each other", func() {
		st := body.New(2)
		st.Set(0, body.Body{X: -0.5})
		st.Set(1, body.Body{X: 0.5})

		_, err := s.Run(ctx, st, sim.Config{Dt: 0.01, Iterations: 1})
		Expect(err).NotTo(HaveOccurred())

		d2 := 1 + float64(compute.Softening)
		want := 0.01 / (d2 * math.Sqrt(d2))
		Expect(float64(st.At(0).VX)).To(BeNumerically("~", want, want*1e-4))
		Expect(float64(st.At(1).VX)).To(BeNumerically("~", -want, want*1e-4))
		Expect(st.At(0).X).To(BeNumerically(">", float32(-0.5)))
		Expect(st.At(1).X).To(BeNumerically("<", float32(0.5)))
	})

	It("leaves a lone body's velocity unchanged", func() {
		st := body.New(1)
		st.Set(0, body.Body{X: 0.1, Y: 0.2, Z: 0.3, VX: -0.4})

		_, err := s.Run(ctx, st, sim.Config{Dt: 0.5, Iterations: 4})
		Expect(err).NotTo(HaveOccurred())
		Expect(st.At(0).VX).To(BeNumerically("~", float32(-0.4), 1e-6))
		Expect(st.At(0).VY).To(BeNumerically("~", float32(0), 1e-6))
		Expect(st.At(0).VZ).To(BeNumerically("~", float32(0), 1e-6))
	})

	It("keeps positions fixed when dt is zero", func() {
		st := body.New(300)
		body.Randomize(st, 9)
		before := st.Clone()

		_, err := s.Run(ctx, st, sim.Config{Dt: 0, Iterations: 5})
		Expect(err).NotTo(HaveOccurred())
		for i, b := range st.Bodies() {
			p := before.At(i)
			Expect([3]float32{b.X, b.Y, b.Z}).To(Equal([3]float32{p.X, p.Y, p.Z}))
		}
	})

	It("moves the corners of a unit square toward its centre", func() {
		st := body.New(4)
		corners := [][2]float32{{-0.5, -0.5}, {0.5, -0.5}, {0.5, 0.5}, {-0.5, 0.5}}
		for i, c := range corners {
			st.Set(i, body.Body{X: c[0], Y: c[1]})
		}

		_, err := s.Run(ctx, st, sim.Config{Dt: 0.01, Iterations: 1})
		Expect(err).NotTo(HaveOccurred())

		for i, c := range corners {
			b := st.At(i)
			dx, dy := b.X-c[0], b.Y-c[1]
			Expect(dx * c[0]).To(BeNumerically("<", 0), "body %d x moved away from centre", i)
			Expect(dy * c[1]).To(BeNumerically("<", 0), "body %d y moved away from centre", i)
			Expect(b.Z).To(BeZero())
		}
	})

	It("repeats a seeded 1024-body run and reports a positive throughput", func() {
		a := body.New(1024)
		body.Randomize(a, 2024)
		b := a.Clone()

		ra, err := s.Run(ctx, a, sim.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())
		rb, err := sim.New(compute.NewCPUBackend(compute.DefaultLayout())).Run(ctx, b, sim.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())

		pos, vel := fieldError(a, b)
		Expect(pos).To(BeNumerically("<=", 1e-3))
		Expect(vel).To(BeNumerically("<=", 1e-3))

		for _, r := range []*sim.Result{ra, rb} {
			Expect(r.Iterations).To(Equal(10))
			Expect(r.IterationTimes).To(HaveLen(10))
			Expect(math.IsInf(r.Throughput, 0) || math.IsNaN(r.Throughput)).To(BeFalse())
			Expect(r.Throughput).To(BeNumerically(">", 0))
		}
	})

	It("agrees across fan-out layouts within summation tolerance", func() {
		a := body.New(512)
		body.Randomize(a, 5)
		b := a.Clone()

		fanned := compute.NewCPUBackend(compute.Layout{TileWidth: 64, GroupSize: 512, Fanout: 8})
		_, err := s.Run(ctx, a, sim.Config{Dt: 0.01, Iterations: 2})
		Expect(err).NotTo(HaveOccurred())
		_, err = sim.New(fanned).Run(ctx, b, sim.Config{Dt: 0.01, Iterations: 2})
		Expect(err).NotTo(HaveOccurred())

		pos, vel := fieldError(b, a)
		Expect(pos).To(BeNumerically("<=", 1e-3))
		Expect(vel).To(BeNumerically("<=", 1e-3))
	})

	It("notifies observers and collects metrics every iteration", func() {
		obs := &countingObserver{}
		s.AddObserver(obs)
		s.AddMetric(&bodyCount{})

		result, err := s.Run(ctx, body.New(8), sim.Config{Dt: 0.01, Iterations: 4})
		Expect(err).NotTo(HaveOccurred())
		Expect(obs.iterations).To(Equal([]int{1, 2, 3, 4}))
		Expect(result.Metrics).To(HaveKeyWithValue("bodies", 8.0))
	})

	It("stops between iterations when the context is canceled", func() {
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		result, err := s.Run(canceled, body.New(8), sim.DefaultConfig())
		Expect(errors.Is(err, sim.ErrCanceled)).To(BeTrue())
		Expect(result.Iterations).To(BeZero())
	})

	It("records an invalid state when validation is on", func() {
		st := body.New(2)
		st.Set(0, body.Body{X: float32(math.NaN())})

		result, err := s.Run(ctx, st, sim.Config{Dt: 0.01, Iterations: 5, ValidateState: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Iterations).To(Equal(1))
		Expect(result.Errors).To(HaveLen(1))

		var simErr *sim.SimulationError
		Expect(errors.As(result.Errors[0], &simErr)).To(BeTrue())
		Expect(simErr.Iteration).To(Equal(1))
		Expect(simErr).To(MatchError(sim.ErrInvalidState))
	})
})

var _ = Describe("Throughput", func() {
	It("is N^2 interactions per mean second in billions", func() {
		Expect(sim.Throughput(1<<15, time.Second)).To(BeNumerically("~", 1.073741824, 1e-9))
	})

	It("is zero for a non-positive mean", func() {
		Expect(sim.Throughput(1024, 0)).To(BeZero())
	})
})
