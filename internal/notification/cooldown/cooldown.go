// Package cooldown throttles repeated notifications per (customer, target,
// type) slot.
package cooldown

import (
	"context"
	"sync"
	"time"
)

// Cooldown claims notification slots. Acquire returns true when the slot was
// free and is now held for ttl.
type Cooldown interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Memory is the in-process cooldown used when Redis is not configured. Slots
// are pruned lazily on access.
type Memory struct {
	mu    sync.Mutex
	slots map[string]time.Time
	clock func() time.Time
}

// NewMemory returns an empty in-process cooldown.
func NewMemory() *Memory {
	return &Memory{slots: make(map[string]time.Time), clock: time.Now}
}

// WithClock overrides the clock; tests use it to advance time.
func (m *Memory) WithClock(clock func() time.Time) *Memory {
	m.clock = clock
	return m
}

// Acquire claims the slot when free or expired.
func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	if until, held := m.slots[key]; held && now.Before(until) {
		return false, nil
	}
	m.slots[key] = now.Add(ttl)
	return true, nil
}
