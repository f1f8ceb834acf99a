package compute

import (
	"fmt"
	"runtime"
)

// Softening is added to every squared distance. It bounds the force between
// near-coincident bodies and makes the self term vanish without a branch.
const Softening float32 = 1e-9

const (
	DefaultTileWidth = 64
	DefaultGroupSize = 64
	DefaultFanout    = 1
)

// Layout describes how the force stage is decomposed.
//
// A group holds GroupSize units and covers GroupSize/Fanout bodies. Unit u
// works on body u/Fanout and reads tile entries u%Fanout, u%Fanout+Fanout, ...
// Fanout must divide both GroupSize and TileWidth.
type Layout struct {
	TileWidth int
	GroupSize int
	Fanout    int
	// Workers bounds the number of groups in flight; 0 means GOMAXPROCS.
	Workers int
}

func DefaultLayout() Layout {
	return Layout{
		TileWidth: DefaultTileWidth,
		GroupSize: DefaultGroupSize,
		Fanout:    DefaultFanout,
	}
}

func (l Layout) Validate() error {
	switch {
	case l.TileWidth <= 0:
		return fmt.Errorf("%w: tile width must be positive, got %d", ErrLayout, l.TileWidth)
	case l.GroupSize <= 0:
		return fmt.Errorf("%w: group size must be positive, got %d", ErrLayout, l.GroupSize)
	case l.Fanout <= 0:
		return fmt.Errorf("%w: fanout must be positive, got %d", ErrLayout, l.Fanout)
	case l.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrLayout, l.Workers)
	case l.GroupSize%l.Fanout != 0:
		return fmt.Errorf("%w: fanout %d does not divide group size %d", ErrLayout, l.Fanout, l.GroupSize)
	case l.TileWidth%l.Fanout != 0:
		return fmt.Errorf("%w: fanout %d does not divide tile width %d", ErrLayout, l.Fanout, l.TileWidth)
	}
	return nil
}

func (l Layout) BodiesPerGroup() int { return l.GroupSize / l.Fanout }

// Groups returns the number of groups needed to cover n bodies.
func (l Layout) Groups(n int) int {
	per := l.BodiesPerGroup()
	return (n + per - 1) / per
}

// Units returns the number of units launched for n bodies. Units past the
// last body still take part in tile loads and barriers.
func (l Layout) Units(n int) int { return l.Groups(n) * l.GroupSize }

// Unit maps a global unit index to the body it sums for and its lane.
func (l Layout) Unit(u int) (body, lane int) {
	return u / l.Fanout, u % l.Fanout
}

func (l Layout) Tiles(n int) int {
	return (n + l.TileWidth - 1) / l.TileWidth
}

// TileBounds returns the half-open body range [lo, hi) of tile t. The last
// tile is cut short when n is not a multiple of the tile width.
func (l Layout) TileBounds(t, n int) (lo, hi int) {
	lo = t * l.TileWidth
	hi = lo + l.TileWidth
	if hi > n {
		hi = n
	}
	return lo, hi
}

func (l Layout) workers() int {
	if l.Workers > 0 {
		return l.Workers
	}
	return runtime.GOMAXPROCS(0)
}
