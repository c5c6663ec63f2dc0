package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory is a sliding-window log kept in process memory. It is only correct
// for a single server instance; multi-instance deployments use Redis.
type Memory struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	events    map[string][]time.Time
	lastSweep time.Time
}

// NewMemory returns a limiter permitting limit actions per window per key.
// now may be nil, in which case time.Now is used.
func NewMemory(limit int, window time.Duration, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		limit:  limit,
		window: window,
		now:    now,
		events: make(map[string][]time.Time),
	}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()
	cutoff := now.Add(-m.window)

	m.mu.Lock()
	defer m.mu.Unlock()

	// At most once per window, forget keys whose events have all expired.
	if now.Sub(m.lastSweep) >= m.window {
		m.sweep(cutoff)
		m.lastSweep = now
	}

	kept := m.events[key][:0]
	for _, t := range m.events[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= m.limit {
		m.events[key] = kept
		return false, nil
	}
	m.events[key] = append(kept, now)
	return true, nil
}

// sweep drops every key with no event after cutoff. Events are appended in
// time order, so the last one is the newest.
func (m *Memory) sweep(cutoff time.Time) {
	for key, events := range m.events {
		if len(events) == 0 || !events[len(events)-1].After(cutoff) {
			delete(m.events, key)
		}
	}
}

// keys reports how many identities are tracked.
func (m *Memory) keys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}
