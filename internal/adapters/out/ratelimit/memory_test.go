package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Burst(t *testing.T) {
	tests := []struct {
		name    string
		rps     float64
		burst   int
		allowed int
	}{
		{"single", 1, 1, 1},
		{"burst of five", 10, 5, 5},
		{"burst of ten", 10, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore(tt.rps, tt.burst, zerowrap.Default())
			ctx := context.Background()
			for i := 0; i < tt.allowed; i++ {
				assert.True(t, store.Allow(ctx, "global"), "request %d", i+1)
			}
			assert.False(t, store.Allow(ctx, "global"))
		})
	}
}

func TestMemoryStore_Refill(t *testing.T) {
	store := NewMemoryStore(10, 1, zerowrap.Default())
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	ctx := context.Background()

	assert.True(t, store.Allow(ctx, "global"))
	assert.False(t, store.Allow(ctx, "global"))

	clock = clock.Add(100 * time.Millisecond)
	assert.True(t, store.Allow(ctx, "global"))
}

func TestMemoryStore_KeysAreIndependent(t *testing.T) {
	store := NewMemoryStore(1, 1, zerowrap.Default())
	ctx := context.Background()

	assert.True(t, store.Allow(ctx, "ip:192.168.1.1"))
	assert.False(t, store.Allow(ctx, "ip:192.168.1.1"))
	assert.True(t, store.Allow(ctx, "ip:192.168.1.2"))
}

func TestMemoryStore_AllowN(t *testing.T) {
	store := NewMemoryStore(10, 5, zerowrap.Default())
	ctx := context.Background()

	assert.False(t, store.AllowN(ctx, "bulk", 10))
	assert.True(t, store.AllowN(ctx, "bulk", 3))
	assert.True(t, store.AllowN(ctx, "bulk", 2))
	assert.False(t, store.AllowN(ctx, "bulk", 1))
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := NewMemoryStore(1, 50, zerowrap.Default())
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if store.Allow(ctx, "shared") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	require.GreaterOrEqual(t, allowed, 50)
	require.LessOrEqual(t, allowed, 55)
}

func TestMemoryStore_Sweep(t *testing.T) {
	store := NewMemoryStore(1, 1, zerowrap.Default())
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	ctx := context.Background()

	assert.True(t, store.Allow(ctx, "ip:10.0.0.1"))
	clock = clock.Add(time.Minute)
	assert.True(t, store.Allow(ctx, "ip:10.0.0.2"))
	require.Equal(t, 2, store.Len())

	clock = clock.Add(30 * time.Second)
	assert.Equal(t, 1, store.Sweep(time.Minute))
	assert.Equal(t, 1, store.Len())

	// The evicted key starts with a full bucket again.
	assert.True(t, store.Allow(ctx, "ip:10.0.0.1"))
}

func TestMemoryStore_ZeroBurst(t *testing.T) {
	store := NewMemoryStore(5, 0, zerowrap.Default())
	assert.True(t, store.Allow(context.Background(), "global"))
}
