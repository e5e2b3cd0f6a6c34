package store

import (
	"sync"

	"featuregraph/pkg/types"
)

// interner deduplicates Instrument values at the State Store boundary so
// that every downstream map keyed by *types.Instrument compares by
// pointer identity instead of repeatedly hashing the full struct.
// Grounded on the teacher's market.Book map keyed by token ID
// (internal/market/book.go), generalized from a single string key to the
// full Instrument composite key.
type interner struct {
	mu    sync.RWMutex
	table map[types.Instrument]*types.Instrument
}

func newInterner() *interner {
	return &interner{table: make(map[types.Instrument]*types.Instrument)}
}

func (n *interner) intern(inst types.Instrument) *types.Instrument {
	n.mu.RLock()
	if p, ok := n.table[inst]; ok {
		n.mu.RUnlock()
		return p
	}
	n.mu.RUnlock()

	n.mu.Lock()
	defer n.mu.Unlock()
	if p, ok := n.table[inst]; ok {
		return p
	}
	p := new(types.Instrument)
	*p = inst
	n.table[inst] = p
	return p
}
