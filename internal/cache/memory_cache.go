package cache

import (
	"context"
	"sync"
	"time"

	"github.com/LeventeLantos/weekly-quiz-bot/internal/model"
)

type memoryEntry struct {
	state     model.ConversationState
	updatedAt time.Time
}

// MemoryCache is an in-process ConversationStore. Entries idle for longer
// than ttl read back as INITIAL and are dropped, either on that read or by
// the sweep Set runs once per ttl; a zero ttl keeps them forever.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time

	lastSweep time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, userID string) (model.ConversationState, error) {
	if err := ctx.Err(); err != nil {
		return model.Initial(), err
	}

	c.mu.RLock()
	e, ok := c.entries[userID]
	c.mu.RUnlock()

	if !ok {
		return model.Initial(), nil
	}
	if c.expired(e) {
		c.mu.Lock()
		// Re-check: a Set may have refreshed the entry meanwhile.
		if cur, ok := c.entries[userID]; ok && c.expired(cur) {
			delete(c.entries, userID)
		}
		c.mu.Unlock()
		return model.Initial(), nil
	}
	st := e.state
	st.State = st.State.Normalize()
	return st, nil
}

func (c *MemoryCache) Set(ctx context.Context, userID string, st model.ConversationState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.entries[userID] = memoryEntry{state: st, updatedAt: now}
	if c.ttl > 0 && now.Sub(c.lastSweep) > c.ttl {
		c.sweepLocked()
		c.lastSweep = now
	}
	return nil
}

// sweepLocked drops entries nobody has read since they expired.
func (c *MemoryCache) sweepLocked() {
	for id, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, id)
		}
	}
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) expired(e memoryEntry) bool {
	return c.ttl > 0 && c.now().Sub(e.updatedAt) > c.ttl
}
