package resources

import (
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

type counters struct {
	opens    atomic.Uint64
	closes   atomic.Uint64
	unloads  atomic.Uint64
	reloads  atomic.Uint64
	failures atomic.Uint64

	loadTime core.Metrics
}

func (c *counters) loaded(took time.Duration) {
	c.loadTime.Update(took)
}

func (c *counters) unloaded() {
	c.unloads.Add(1)
}

// Stats summarizes manager activity since New.
type Stats struct {
	Resources int
	Loaded    int
	Opens     uint64
	Closes    uint64
	Loads     uint64
	Unloads   uint64
	Reloads   uint64
	// Failures counts open, close and reload calls that returned an error.
	Failures    uint64
	LoadTime    time.Duration
	AvgLoadTime time.Duration
}

func (m *Manager) Stats() Stats {
	total, loads := m.stats.loadTime.Total()
	st := Stats{
		Resources:   m.count,
		Opens:       m.stats.opens.Load(),
		Closes:      m.stats.closes.Load(),
		Loads:       loads,
		Unloads:     m.stats.unloads.Load(),
		Reloads:     m.stats.reloads.Load(),
		Failures:    m.stats.failures.Load(),
		LoadTime:    total,
		AvgLoadTime: m.stats.loadTime.Average(),
	}
	for i := range m.slots {
		s := &m.slots[i]
		if !s.occupied {
			continue
		}
		s.mu.Lock()
		if s.payload != nil {
			st.Loaded++
		}
		s.mu.Unlock()
	}
	return st
}
