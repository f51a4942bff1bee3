package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter is a single-process counter for deployments without Redis
// and for tests. Same semantics as RedisCounter: the slot is claimed and
// counted in one step under the mutex, with a fixed expiry from the first
// reservation.
type MemoryCounter struct {
	mu     sync.Mutex
	window time.Duration
	max    int64
	counts map[string]*memoryEntry
	now    func() time.Time
}

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// NewMemoryCounter creates an in-process counter.
func NewMemoryCounter(window time.Duration, max int64) *MemoryCounter {
	return &MemoryCounter{
		window: window,
		max:    max,
		counts: make(map[string]*memoryEntry),
		now:    time.Now,
	}
}

// Reserve claims one submission slot. Check and increment happen under
// the same lock, so two concurrent submissions can never both see a free
// slot.
func (c *MemoryCounter) Reserve(ctx context.Context, identity string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.live(identity)
	if entry == nil {
		c.counts[identity] = &memoryEntry{count: 1, expiresAt: c.now().Add(c.window)}
		return true, nil
	}
	if entry.count >= c.max {
		return false, nil
	}
	entry.count++
	return true, nil
}

// Release returns a reserved slot, called when the submission is rejected
// or fails to persist so it never consumes quota.
func (c *MemoryCounter) Release(ctx context.Context, identity string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry := c.live(identity); entry != nil && entry.count > 0 {
		entry.count--
	}
	return nil
}

// live returns the current entry for identity, pruning it when expired.
// Callers must hold the mutex.
func (c *MemoryCounter) live(identity string) *memoryEntry {
	entry, ok := c.counts[identity]
	if !ok {
		return nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.counts, identity)
		return nil
	}
	return entry
}
