// Package memory provides the allocators resource payloads are carved from.
//
// Go manages the underlying memory, so an Allocator here is an accounting
// boundary: it hands out byte blocks, tracks what is live and can refuse
// requests that would exceed a budget. A payload always remembers the
// allocator that produced it and is released through that same allocator.
package memory

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBudgetExceeded is returned when a Tracker would go over its budget.
var ErrBudgetExceeded = errors.New("allocation budget exceeded")

// ErrForeignBlock is returned when a block is freed through an allocator
// that did not produce it, or freed twice.
var ErrForeignBlock = errors.New("block not owned by allocator")

// Allocator hands out byte blocks and takes them back.
type Allocator interface {
	Allocate(size uint64) ([]byte, error)
	Free(block []byte) error
}

type heap struct{}

// Heap is the default allocator. It never refuses and keeps no bookkeeping.
var Heap Allocator = heap{}

func (heap) Allocate(size uint64) ([]byte, error) {
	return make([]byte, size), nil
}

func (heap) Free([]byte) error { return nil }

// Stats is a snapshot of a Tracker.
type Stats struct {
	LiveBytes   uint64
	LiveBlocks  int
	PeakBytes   uint64
	Allocations uint64
	Frees       uint64
}

// Tracker wraps another allocator and accounts for every live block.
// A zero budget means unlimited.
type Tracker struct {
	mu     sync.Mutex
	parent Allocator
	budget uint64
	live   map[*byte]uint64
	stats  Stats
}

// NewTracker returns a Tracker over parent. A nil parent uses Heap.
func NewTracker(parent Allocator, budget uint64) *Tracker {
	if parent == nil {
		parent = Heap
	}
	return &Tracker{
		parent: parent,
		budget: budget,
		live:   make(map[*byte]uint64),
	}
}

func (t *Tracker) Allocate(size uint64) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.budget > 0 && t.stats.LiveBytes+size > t.budget {
		return nil, fmt.Errorf("%w: %d live + %d requested > %d", ErrBudgetExceeded, t.stats.LiveBytes, size, t.budget)
	}
	// A zero-length block has no address to key on.
	block, err := t.parent.Allocate(max(size, 1))
	if err != nil {
		return nil, err
	}
	block = block[:size:cap(block)]
	t.live[key(block)] = size
	t.stats.LiveBytes += size
	t.stats.LiveBlocks++
	t.stats.Allocations++
	t.stats.PeakBytes = max(t.stats.PeakBytes, t.stats.LiveBytes)
	return block, nil
}

func (t *Tracker) Free(block []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key(block)
	size, ok := t.live[k]
	if !ok {
		return ErrForeignBlock
	}
	delete(t.live, k)
	t.stats.LiveBytes -= size
	t.stats.LiveBlocks--
	t.stats.Frees++
	return t.parent.Free(block[:cap(block)])
}

// Stats returns a copy of the current counters.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

func key(block []byte) *byte {
	if cap(block) == 0 {
		return nil
	}
	return &block[:1][0]
}
