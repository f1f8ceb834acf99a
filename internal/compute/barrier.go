package compute

import "sync"

// Barrier is a reusable rendezvous for the units of one group. Wait returns
// once every party has called it; the barrier then resets for the next round.
type Barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	parties    int
	waiting    int
	generation uint64
}

func NewBarrier(parties int) *Barrier {
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until all parties arrive. A nil or single-party barrier never blocks.
func (b *Barrier) Wait() {
	if b == nil || b.parties <= 1 {
		return
	}

	b.mu.Lock()
	gen := b.generation
	b.waiting++
	if b.waiting == b.parties {
		b.waiting = 0
		b.generation++
		b.cond.Broadcast()
		b.mu.Unlock()
		return
	}
	for gen == b.generation {
		b.cond.Wait()
	}
	b.mu.Unlock()
}
