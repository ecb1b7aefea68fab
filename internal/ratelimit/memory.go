package ratelimit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync"
)

type counter struct {
	n        atomic.Int64
	expireAt time.Time
}

// MemoryStore keeps counters in process. Use it for tests and single-instance deployments.
type MemoryStore struct {
	counters *xsync.MapOf[string, *counter]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: xsync.NewMapOf[*counter]()}
}

// Incr bumps key's counter. expireAt is fixed by the first hit of the window.
func (s *MemoryStore) Incr(_ context.Context, key string, expireAt time.Time) (int64, error) {
	c, _ := s.counters.LoadOrCompute(key, func() *counter {
		return &counter{expireAt: expireAt}
	})
	return c.n.Add(1), nil
}

func (s *MemoryStore) Sweep(now time.Time) int {
	removed := 0
	s.counters.Range(func(key string, c *counter) bool {
		if !c.expireAt.After(now) {
			s.counters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

func (s *MemoryStore) Len() int { return s.counters.Size() }
