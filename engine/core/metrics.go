package core

import (
	"sync"
	"time"
)

const AVG_COUNT uint8 = 30

// Metrics keeps a running total and a rolling average over the last
// AVG_COUNT duration samples. The zero value is ready to use.
type Metrics struct {
	mu sync.Mutex

	counter uint8
	filled  uint8
	samples [AVG_COUNT]time.Duration
	avg     time.Duration

	count uint64
	total time.Duration
}

func (m *Metrics) Update(sample time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples[m.counter] = sample
	m.counter++
	m.counter %= AVG_COUNT
	if m.filled < AVG_COUNT {
		m.filled++
	}

	var sum time.Duration
	for i := uint8(0); i < m.filled; i++ {
		sum += m.samples[i]
	}
	m.avg = sum / time.Duration(m.filled)

	m.count++
	m.total += sample
}

// Average returns the mean of the retained samples.
func (m *Metrics) Average() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.avg
}

// Total returns the sum and number of every sample ever recorded.
func (m *Metrics) Total() (time.Duration, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total, m.count
}
