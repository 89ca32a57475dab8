package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/modelyard/modelyard/pkg/device"
)

type fakeHandle struct {
	size   int64
	closed bool
}

func (h *fakeHandle) Alive() bool       { return !h.closed }
func (h *fakeHandle) SizeBytes() int64  { return h.size }
func (h *fakeHandle) Tier() device.Tier { return device.Tier{Name: "cpu"} }
func (h *fakeHandle) Close() error {
	h.closed = true
	return nil
}

func newTestCache(t *testing.T, maxBytes int64, ttl time.Duration) *Cache {
	t.Helper()
	c, err := New(t.TempDir(), maxBytes, ttl)
	require.NoError(t, err)
	return c
}

func TestKeyIsOrderIndependent(t *testing.T) {
	type backwards struct {
		TopP          float64 `json:"top_p"`
		ContextLength int     `json:"context_length"`
	}

	k1, err := Key("tinyllama", map[string]any{"context_length": 2048, "top_p": 0.95})
	require.NoError(t, err)
	k2, err := Key("tinyllama", backwards{TopP: 0.95, ContextLength: 2048})
	require.NoError(t, err)
	require.Equal(t, k1, k2)

	k3, err := Key("tinyllama", map[string]any{"context_length": 4096, "top_p": 0.95})
	require.NoError(t, err)
	require.NotEqual(t, k1, k3)

	k4, err := Key("other", map[string]any{"context_length": 2048, "top_p": 0.95})
	require.NoError(t, err)
	require.NotEqual(t, k1, k4)
}

func TestGetMiss(t *testing.T) {
	c := newTestCache(t, 1000, time.Hour)
	_, ok := c.Get("nope")
	require.False(t, ok)
}

func TestPutAndGet(t *testing.T) {
	c := newTestCache(t, 1000, time.Hour)
	h := &fakeHandle{size: 100}
	require.NoError(t, c.Put("k1", h, 100))

	got, ok := c.Get("k1")
	require.True(t, ok)
	require.Same(t, device.Handle(h), got)
	require.Equal(t, int64(100), c.TotalSize())
}

func TestEvictionIsOldestFirstAndBounded(t *testing.T) {
	c := newTestCache(t, 300, time.Hour)

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	handles := map[string]*fakeHandle{}
	for _, key := range []string{"a", "b", "c"} {
		h := &fakeHandle{size: 100}
		handles[key] = h
		require.NoError(t, c.Put(key, h, 100))
		clock = clock.Add(time.Minute)
	}
	require.Equal(t, int64(300), c.TotalSize())

	// inserting 200 more must evict exactly the two oldest
	h := &fakeHandle{size: 200}
	require.NoError(t, c.Put("d", h, 200))

	require.LessOrEqual(t, c.TotalSize(), int64(300))
	_, ok := c.Get("a")
	require.False(t, ok)
	_, ok = c.Get("b")
	require.False(t, ok)
	_, ok = c.Get("c")
	require.True(t, ok)
	_, ok = c.Get("d")
	require.True(t, ok)

	// evicted handles were released
	require.False(t, handles["a"].Alive())
	require.False(t, handles["b"].Alive())
	require.True(t, handles["c"].Alive())
}

func TestTTLExpiryIsLazy(t *testing.T) {
	c := newTestCache(t, 1000, time.Hour)

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	h := &fakeHandle{size: 100}
	require.NoError(t, c.Put("k1", h, 100))

	clock = clock.Add(30 * time.Minute)
	_, ok := c.Get("k1")
	require.True(t, ok)

	clock = clock.Add(31 * time.Minute)
	_, ok = c.Get("k1")
	require.False(t, ok)

	// the expired entry is purged, not just hidden
	require.Equal(t, 0, c.Len())
	require.Equal(t, int64(0), c.TotalSize())
	require.False(t, h.Alive())
}

func TestTTLBoundaryIsAMiss(t *testing.T) {
	c := newTestCache(t, 1000, time.Hour)

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	h := &fakeHandle{size: 100}
	require.NoError(t, c.Put("k1", h, 100))

	// an entry aged exactly its TTL is already expired
	clock = clock.Add(time.Hour)
	_, ok := c.Get("k1")
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestDeadHandleIsAMissNotAnError(t *testing.T) {
	c := newTestCache(t, 1000, time.Hour)
	h := &fakeHandle{size: 100}
	require.NoError(t, c.Put("k1", h, 100))

	// backing resource goes away behind the cache's back
	h.closed = true

	_, ok := c.Get("k1")
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestIndexSurvivesRestartButHandlesDoNot(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 1000, time.Hour)
	require.NoError(t, err)
	require.NoError(t, c.Put("k1", &fakeHandle{size: 100}, 100))

	// a new process sees the index but owns no handles; the entry is
	// repaired lazily on first access
	reopened, err := New(dir, 1000, time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, reopened.Len())

	_, ok := reopened.Get("k1")
	require.False(t, ok)
	require.Equal(t, 0, reopened.Len())
	require.Equal(t, int64(0), reopened.TotalSize())
}

func TestInvalidateUnknownKeyIsNoop(t *testing.T) {
	c := newTestCache(t, 1000, time.Hour)
	require.NoError(t, c.Invalidate("nope"))
}

func TestClose(t *testing.T) {
	c := newTestCache(t, 1000, time.Hour)
	h1 := &fakeHandle{size: 100}
	h2 := &fakeHandle{size: 100}
	require.NoError(t, c.Put("k1", h1, 100))
	require.NoError(t, c.Put("k2", h2, 100))

	require.NoError(t, c.Close())
	require.False(t, h1.Alive())
	require.False(t, h2.Alive())
	require.Equal(t, 0, c.Len())
}
