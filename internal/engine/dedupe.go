package engine

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DedupeKey identifies one sent reminder: the event, the offset that
// fired, and the occurrence it fired for. Keying on the occurrence
// instant means a rolled-over event immediately becomes sendable again
// for its next occurrence.
type DedupeKey struct {
	EventID       string
	OffsetMinutes int
	Occurrence    time.Time
}

func (k DedupeKey) String() string {
	return fmt.Sprintf("%s:%d:%d", k.EventID, k.OffsetMinutes, k.Occurrence.Unix())
}

// DedupeCache remembers which reminders were already delivered, with
// explicit eviction once the occurrence has safely passed. It replaces
// an unbounded "already notified" set: the policy is visible and the
// memory is bounded by eviction.
//
// Seen is advisory. A cache miss on an already-sent reminder causes a
// duplicate notification, which the at-least-once contract tolerates,
// so implementations fail open.
type DedupeCache interface {
	Seen(ctx context.Context, key DedupeKey) bool
	Mark(ctx context.Context, key DedupeKey) error
	Evict(ctx context.Context, before time.Time) error
}

// MemoryDedupeCache is the in-process implementation used by the
// client-style driver and by tests.
type MemoryDedupeCache struct {
	mu      sync.Mutex
	entries map[string]int64 // key → occurrence unix seconds
}

func NewMemoryDedupeCache() *MemoryDedupeCache {
	return &MemoryDedupeCache{entries: make(map[string]int64)}
}

func (c *MemoryDedupeCache) Seen(_ context.Context, key DedupeKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key.String()]
	return ok
}

func (c *MemoryDedupeCache) Mark(_ context.Context, key DedupeKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.String()] = key.Occurrence.Unix()
	return nil
}

func (c *MemoryDedupeCache) Evict(_ context.Context, before time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := before.Unix()
	for k, occ := range c.entries {
		if occ < cutoff {
			delete(c.entries, k)
		}
	}
	return nil
}

// Len reports the number of live entries, for tests.
func (c *MemoryDedupeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
