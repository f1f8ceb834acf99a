package compute

import (
	"math"
	"sync"

	"github.com/dgravesa/go-parallel/parallel"
	"github.com/san-kum/nbody/internal/body"
	"golang.org/x/sync/errgroup"
)

type CPUBackend struct {
	layout Layout
	tiles  *TilePool
}

// NewCPUBackend runs each cooperative group on goroutines. The layout is
// expected to be valid; see Layout.Validate.
func NewCPUBackend(layout Layout) *CPUBackend {
	return &CPUBackend{
		layout: layout,
		tiles:  NewTilePool(layout.TileWidth),
	}
}

func (c *CPUBackend) Name() string    { return "cpu" }
func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Cleanup()        {}

func (c *CPUBackend) Layout() Layout { return c.layout }

func (c *CPUBackend) BodyForce(s *body.State, dt float32) {
	n := s.Len()
	if n == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(c.layout.workers())
	for group := 0; group < c.layout.Groups(n); group++ {
		g.Go(func() error {
			c.forceGroup(s, group, dt)
			return nil
		})
	}
	_ = g.Wait()
}

// forceGroup runs one cooperative group. Its lanes share a tile and meet at
// two barriers per tile: after the load and after the last read.
func (c *CPUBackend) forceGroup(s *body.State, group int, dt float32) {
	tile := c.tiles.Get()
	defer c.tiles.Put(tile)

	fanout := c.layout.Fanout
	if fanout == 1 {
		c.forceLane(s, group, 0, dt, tile, nil)
		return
	}

	bar := NewBarrier(fanout)
	var wg sync.WaitGroup
	for lane := 0; lane < fanout; lane++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.forceLane(s, group, lane, dt, tile, bar)
		}()
	}
	wg.Wait()
}

type unitSum struct {
	body       int
	x, y, z    float32
	fx, fy, fz float32
}

// forceLane sums, for every unit of the group in the given lane, the tile
// entries lane, lane+Fanout, ... of every tile, then commits each unit's
// partial force once.
func (c *CPUBackend) forceLane(s *body.State, group, lane int, dt float32, tile *Tile, bar *Barrier) {
	l := c.layout
	bodies := s.Bodies()
	n := len(bodies)
	per := l.BodiesPerGroup()
	first := group * l.GroupSize

	units := make([]unitSum, 0, per)
	for k := 0; k < per; k++ {
		id, _ := l.Unit(first + k*l.Fanout + lane)
		if id >= n {
			break
		}
		p := &bodies[id]
		units = append(units, unitSum{body: id, x: p.X, y: p.Y, z: p.Z})
	}

	for t := 0; t < l.Tiles(n); t++ {
		lo, hi := l.TileBounds(t, n)
		if lane == 0 {
			tile.Load(bodies[lo:hi])
		}
		bar.Wait()

		w := tile.Len()
		tx, ty, tz := tile.X[:w], tile.Y[:w], tile.Z[:w]
		for k := range units {
			u := &units[k]
			fx, fy, fz := u.fx, u.fy, u.fz
			for j := lane; j < w; j += l.Fanout {
				dx := tx[j] - u.x
				dy := ty[j] - u.y
				dz := tz[j] - u.z
				distSqr := dx*dx + dy*dy + dz*dz + Softening
				invDist := float32(1 / math.Sqrt(float64(distSqr)))
				invDist3 := invDist * invDist * invDist
				fx += dx * invDist3
				fy += dy * invDist3
				fz += dz * invDist3
			}
			u.fx, u.fy, u.fz = fx, fy, fz
		}

		bar.Wait()
	}

	for _, u := range units {
		s.AddVelocity(u.body, dt*u.fx, dt*u.fy, dt*u.fz)
	}
}

func (c *CPUBackend) IntegratePositions(s *body.State, dt float32) {
	bodies := s.Bodies()
	n := len(bodies)
	if n == 0 {
		return
	}

	parallel.WithNumGoroutines(c.layout.workers()).For(n, func(i, _ int) {
		b := &bodies[i]
		b.X += b.VX * dt
		b.Y += b.VY * dt
		b.Z += b.VZ * dt
	})
}
