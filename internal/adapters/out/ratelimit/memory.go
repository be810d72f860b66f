// Package ratelimit provides token bucket limiters for the API.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/zerowrap"
	"golang.org/x/time/rate"

	"github.com/ltuffery/Octopus/internal/boundaries/out"
)

var _ out.RateLimiter = (*MemoryStore)(nil)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryStore keeps one token bucket per key in memory.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*entry
	limit   rate.Limit
	burst   int
	now     func() time.Time
	log     zerowrap.Logger
}

// NewMemoryStore creates a store allowing rps requests per second per key
// with the given burst.
func NewMemoryStore(rps float64, burst int, log zerowrap.Logger) *MemoryStore {
	if burst < 1 {
		burst = 1
	}
	return &MemoryStore{
		buckets: make(map[string]*entry),
		limit:   rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
		log:     log,
	}
}

// Allow reports whether one request for key fits in its bucket.
func (s *MemoryStore) Allow(ctx context.Context, key string) bool {
	return s.AllowN(ctx, key, 1)
}

// AllowN reports whether n requests for key fit in its bucket.
func (s *MemoryStore) AllowN(_ context.Context, key string, n int) bool {
	now := s.now()
	return s.bucket(key, now).AllowN(now, n)
}

func (s *MemoryStore) bucket(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.buckets[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// Sweep drops buckets not used for longer than idle and returns how many
// were removed. A dropped key starts again with a full bucket.
func (s *MemoryStore) Sweep(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	removed := 0
	for key, e := range s.buckets {
		if e.lastSeen.Before(cutoff) {
			delete(s.buckets, key)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.log.Debug().
			Str(zerowrap.FieldLayer, "adapter").
			Str(zerowrap.FieldAdapter, "ratelimit").
			Int("removed", removed).
			Msg("evicted idle rate limit buckets")
	}
	return removed
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// StartSweeper runs Sweep every interval until ctx is done.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(idle)
			}
		}
	}()
}
