package filter

import (
	"context"
	"sync"
	"time"
)

type hintCounter struct {
	count     int
	expiresAt time.Time
}

// MemoryStore is a process-local HintStore.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	hints map[hintKey]*hintCounter
}

type hintKey struct {
	topic  string
	peerID string
}

// NewMemoryStore creates a store whose counters expire ttl after their last hint.
// A non-positive ttl keeps counters forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:   ttl,
		hints: make(map[hintKey]*hintCounter),
	}
}

func (m *MemoryStore) live(c *hintCounter, now time.Time) bool {
	return m.ttl <= 0 || now.Before(c.expiresAt)
}

// Add increments the counter for (topic, peerID).
func (m *MemoryStore) Add(_ context.Context, topic, peerID string, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := hintKey{topic: topic, peerID: peerID}
	c, ok := m.hints[key]
	if !ok || !m.live(c, now) {
		c = &hintCounter{}
		m.hints[key] = c
	}
	c.count++
	c.expiresAt = now.Add(m.ttl)
	return c.count, nil
}

// Count returns the live counter for (topic, peerID).
func (m *MemoryStore) Count(_ context.Context, topic, peerID string, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := hintKey{topic: topic, peerID: peerID}
	c, ok := m.hints[key]
	if !ok {
		return 0, nil
	}
	if !m.live(c, now) {
		delete(m.hints, key)
		return 0, nil
	}
	return c.count, nil
}

// Close is a no-op.
func (m *MemoryStore) Close(context.Context) error { return nil }
