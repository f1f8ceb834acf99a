package compute

import (
	"sync"

	"github.com/san-kum/nbody/internal/body"
)

// Tile is a group's scratchpad: the positions of up to TileWidth source bodies.
type Tile struct {
	X, Y, Z []float32
	n       int
}

// Load stages src into the tile. Only position fields are read, so a load may
// overlap velocity commits to the same bodies.
func (t *Tile) Load(src []body.Body) {
	t.n = len(src)
	for k := range src {
		p := &src[k]
		t.X[k] = p.X
		t.Y[k] = p.Y
		t.Z[k] = p.Z
	}
}

func (t *Tile) Len() int { return t.n }

type TilePool struct {
	pool  sync.Pool
	width int
}

func NewTilePool(width int) *TilePool {
	return &TilePool{
		width: width,
		pool: sync.Pool{
			New: func() interface{} {
				return &Tile{
					X: make([]float32, width),
					Y: make([]float32, width),
					Z: make([]float32, width),
				}
			},
		},
	}
}

func (p *TilePool) Get() *Tile {
	return p.pool.Get().(*Tile)
}

func (p *TilePool) Put(t *Tile) {
	if len(t.X) == p.width {
		t.n = 0
		p.pool.Put(t)
	}
}
