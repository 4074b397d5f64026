package urlcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestMemory() (*Memory, *clock) {
	c := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	m := NewMemory()
	m.now = c.Now
	return m, c
}

// ============================================================================
// Memory
// ============================================================================

func TestMemory_GetSet(t *testing.T) {
	m, c := newTestMemory()
	ctx := context.Background()

	if _, ok := m.Get(ctx, "a.jpg"); ok {
		t.Error("Get() on empty cache hit")
	}

	m.Set(ctx, "a.jpg", "https://signed/a", 50*time.Second)
	if got, ok := m.Get(ctx, "a.jpg"); !ok || got != "https://signed/a" {
		t.Errorf("Get() = %q, %v; want signed URL", got, ok)
	}

	c.Advance(50 * time.Second)
	if _, ok := m.Get(ctx, "a.jpg"); ok {
		t.Error("Get() hit at expiry, want miss")
	}
}

func TestMemory_ZeroTTLNotStored(t *testing.T) {
	m, _ := newTestMemory()
	m.Set(context.Background(), "a.jpg", "u", 0)
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}

func TestMemory_Sweep(t *testing.T) {
	m, c := newTestMemory()
	ctx := context.Background()

	m.Set(ctx, "short", "u1", time.Second)
	m.Set(ctx, "long", "u2", time.Minute)
	c.Advance(2 * time.Second)

	if removed := m.Sweep(); removed != 1 {
		t.Errorf("Sweep() = %d, want 1", removed)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
	if _, ok := m.Get(ctx, "long"); !ok {
		t.Error("long-lived entry swept")
	}
}

func TestMemory_RunSweeperStops(t *testing.T) {
	m, _ := newTestMemory()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.RunSweeper(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunSweeper did not return after cancel")
	}
}

func TestMemory_Concurrent(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Set(ctx, "k", "u", time.Minute)
			m.Get(ctx, "k")
			m.Sweep()
		}()
	}
	wg.Wait()
}

// ============================================================================
// Redis
// ============================================================================

func TestRedis_UnreachableIsMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	r := NewRedis(client, "test:")
	ctx := context.Background()

	r.Set(ctx, "a.jpg", "u", time.Minute)
	if _, ok := r.Get(ctx, "a.jpg"); ok {
		t.Error("Get() hit with no server, want miss")
	}
}
