package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type gaugeStub struct {
	mu   sync.Mutex
	last int
}

func (g *gaugeStub) OpenSessions(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = n
}

func TestSessionsReuseStorePerSession(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	gauge := &gaugeStub{}
	sessions := NewSessions(backend.ForSession, time.Minute, gauge)

	a := sessions.Open(ctx, "a")
	require.Same(t, a, sessions.Open(ctx, "a"))
	b := sessions.Open(ctx, "b")
	require.NotSame(t, a, b)

	a.AddToCart(ctx, caseProduct(), 1)
	require.Equal(t, 0, b.Count())
	require.Equal(t, 2, sessions.Len())
	require.Equal(t, 2, gauge.last)
}

func TestSessionsSweepEvictsIdleAndRestores(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	gauge := &gaugeStub{}
	sessions := NewSessions(backend.ForSession, 30*time.Minute, gauge)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sessions.now = func() time.Time { return now }

	idle := sessions.Open(ctx, "idle")
	idle.AddToCart(ctx, caseProduct(), 3)

	now = now.Add(20 * time.Minute)
	sessions.Open(ctx, "active")

	now = now.Add(15 * time.Minute)
	require.Equal(t, 1, sessions.Sweep())
	require.Equal(t, 1, sessions.Len())
	require.Equal(t, 1, gauge.last)

	restored := sessions.Open(ctx, "idle")
	require.NotSame(t, idle, restored)
	require.Equal(t, 3, restored.Count())
}

func TestSessionsSweepDisabledWithoutIdle(t *testing.T) {
	sessions := NewSessions(NewMemoryBackend().ForSession, 0, nil)
	sessions.Open(context.Background(), "x")
	require.Equal(t, 0, sessions.Sweep())
	require.Equal(t, 1, sessions.Len())
}

func TestSessionsConcurrentOpenReturnsSingleStore(t *testing.T) {
	sessions := NewSessions(NewMemoryBackend().ForSession, time.Minute, nil)
	var wg sync.WaitGroup
	stores := make([]*Store, 20)
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stores[i] = sessions.Open(context.Background(), "same")
		}(i)
	}
	wg.Wait()
	for _, s := range stores {
		require.Same(t, stores[0], s)
	}
}

// cancelAwareStorage fails reads on a done context the way network clients do.
type cancelAwareStorage struct {
	MemoryStorage
	failNextReads int
}

func (c *cancelAwareStorage) Read(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if c.failNextReads > 0 {
		c.failNextReads--
		return "", false, errors.New("connection reset")
	}
	return c.MemoryStorage.Read(ctx, key)
}

func seededStorage(t *testing.T, items Items) *cancelAwareStorage {
	t.Helper()
	raw, err := Encode(items)
	require.NoError(t, err)
	storage := &cancelAwareStorage{MemoryStorage: MemoryStorage{data: map[string]string{}}}
	require.NoError(t, storage.MemoryStorage.Write(context.Background(), StorageKey, raw))
	return storage
}

func TestSessionsOpenWithAbortedRequestKeepsPersistedCart(t *testing.T) {
	storage := seededStorage(t, Items{{ProductID: 1, Name: "Screen", UnitPrice: dec("80"), Quantity: 2}})
	sessions := NewSessions(func(string) Storage { return storage }, time.Minute, nil)

	aborted, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, 2, sessions.Open(aborted, "s1").Count())

	ctx := context.Background()
	sessions.Open(ctx, "s1").AddToCart(ctx, Product{ID: 2, Name: "Case", Price: dec("10")}, 1)

	raw, found, err := storage.MemoryStorage.Read(ctx, StorageKey)
	require.NoError(t, err)
	require.True(t, found)
	persisted, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	require.Equal(t, 2, persisted[0].Quantity)
}

func TestSessionsDoNotCacheStoreAfterReadError(t *testing.T) {
	storage := seededStorage(t, Items{{ProductID: 1, Name: "Screen", UnitPrice: dec("80"), Quantity: 2}})
	storage.failNextReads = 1
	sessions := NewSessions(func(string) Storage { return storage }, time.Minute, nil)
	ctx := context.Background()

	first := sessions.Open(ctx, "s1")
	require.Equal(t, 0, first.Count())
	require.Equal(t, 0, sessions.Len())

	second := sessions.Open(ctx, "s1")
	require.NotSame(t, first, second)
	require.Equal(t, 2, second.Count())
	require.Equal(t, 1, sessions.Len())
	require.Same(t, second, sessions.Open(ctx, "s1"))
}

func TestSessionsSweepReleasesMemoryStorage(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	sessions := NewSessions(backend.ForSession, time.Minute, nil)
	sessions.OnEvict(backend.Release)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sessions.now = func() time.Time { return now }

	sessions.Open(ctx, "old").AddToCart(ctx, caseProduct(), 1)
	sessions.Open(ctx, "new")
	require.Equal(t, 2, backend.Len())

	now = now.Add(2 * time.Minute)
	sessions.Open(ctx, "new")
	require.Equal(t, 1, sessions.Sweep())
	require.Equal(t, 1, backend.Len())
	require.Equal(t, 0, sessions.Open(ctx, "old").Count())
}
