package data

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(t *testing.T, medium CacheMedium, opts CacheOptions, clock *testClock) *Store {
	t.Helper()
	if medium == nil {
		fm, err := NewFileMedium(t.TempDir())
		require.NoError(t, err)
		medium = fm
	}
	s, err := NewStore(medium, opts, log.DefaultLogger, WithCacheClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

// flakyMedium fails writes or reads on demand.
type flakyMedium struct {
	CacheMedium
	failWrites bool
	failReads  bool
}

func (m *flakyMedium) Write(ctx context.Context, area Area, name string, data []byte) error {
	if m.failWrites {
		return errors.New("disk full")
	}
	return m.CacheMedium.Write(ctx, area, name, data)
}

func (m *flakyMedium) Read(ctx context.Context, area Area, name string) ([]byte, error) {
	if m.failReads {
		return nil, errors.New("i/o error")
	}
	return m.CacheMedium.Read(ctx, area, name)
}

func TestStore_SetGetDelete(t *testing.T) {
	s := newTestStore(t, nil, CacheOptions{}, newTestClock())
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "research:htmx", []byte("payload"), time.Hour))

	got, err := s.Get(ctx, "research:htmx")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
	assert.True(t, s.Exists(ctx, "research:htmx"))

	require.NoError(t, s.Delete(ctx, "research:htmx"))
	_, err = s.Get(ctx, "research:htmx")
	assert.ErrorIs(t, err, ErrCacheNotFound)
	assert.False(t, s.Exists(ctx, "research:htmx"))

	require.NoError(t, s.Delete(ctx, "never-set"))
}

func TestStore_ExpiredEntriesArePurged(t *testing.T) {
	clock := newTestClock()
	fm, err := NewFileMedium(t.TempDir())
	require.NoError(t, err)
	s := newTestStore(t, fm, CacheOptions{}, clock)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	clock.Advance(59 * time.Second)
	_, err = s.Get(ctx, "k")
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheNotFound)
	assert.False(t, s.Exists(ctx, "k"))

	names, err := fm.List(ctx, AreaMetadata)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Equal(t, int64(1), s.Stats().Expired)
}

func TestStore_DefaultTTLAndNoExpiry(t *testing.T) {
	clock := newTestClock()
	s := newTestStore(t, nil, CacheOptions{DefaultTTL: time.Hour}, clock)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "default", []byte("x"), 0))
	require.NoError(t, s.Set(ctx, "forever", []byte("y"), -1))

	clock.Advance(2 * time.Hour)
	assert.False(t, s.Exists(ctx, "default"))
	assert.True(t, s.Exists(ctx, "forever"))
}

func TestStore_ReadsFromMediumAfterRestart(t *testing.T) {
	clock := newTestClock()
	fm, err := NewFileMedium(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first := newTestStore(t, fm, CacheOptions{}, clock)
	payload := randomBytes(t, 4096)
	require.NoError(t, first.Set(ctx, "blob", payload, time.Hour))

	second := newTestStore(t, fm, CacheOptions{}, clock)
	got, err := second.Get(ctx, "blob")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	entries, err := second.entries(ctx, AreaContent)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].AccessCount)
	assert.Equal(t, int64(4096), entries[0].RawSize)
}

func TestStore_CorruptBlobIsAMiss(t *testing.T) {
	clock := newTestClock()
	fm, err := NewFileMedium(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first := newTestStore(t, fm, CacheOptions{}, clock)
	require.NoError(t, first.Set(ctx, "k", []byte("original"), time.Hour))

	second := newTestStore(t, fm, CacheOptions{}, clock)
	require.NoError(t, fm.Write(ctx, AreaContent, blobName("k"), first.enc.EncodeAll([]byte("tampered"), nil)))

	_, err = second.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheNotFound)
	assert.Equal(t, int64(1), second.Stats().Errors)
	assert.False(t, second.Exists(ctx, "k"), "corrupt entry is dropped")
}

func TestStore_ReadErrorsDegradeToMiss(t *testing.T) {
	fm, err := NewFileMedium(t.TempDir())
	require.NoError(t, err)
	flaky := &flakyMedium{CacheMedium: fm}
	clock := newTestClock()
	ctx := context.Background()

	require.NoError(t, newTestStore(t, flaky, CacheOptions{}, clock).Set(ctx, "k", []byte("v"), time.Hour))

	s := newTestStore(t, flaky, CacheOptions{}, clock)
	flaky.failReads = true
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheNotFound)

	flaky.failReads = false
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestStore_WriteErrorsAreReturned(t *testing.T) {
	fm, err := NewFileMedium(t.TempDir())
	require.NoError(t, err)
	flaky := &flakyMedium{CacheMedium: fm, failWrites: true}
	s := newTestStore(t, flaky, CacheOptions{}, newTestClock())

	err = s.Set(context.Background(), "k", []byte("v"), time.Hour)
	var cacheErr *CacheError
	require.True(t, errors.As(err, &cacheErr))
	assert.Equal(t, "write", cacheErr.Op)
	assert.Equal(t, "k", cacheErr.Key)
}

func TestStore_Invalidate(t *testing.T) {
	s := newTestStore(t, nil, CacheOptions{}, newTestClock())
	ctx := context.Background()

	for _, k := range []string{"research:htmx", "research:bun", "artifact:htmx"} {
		require.NoError(t, s.Set(ctx, k, []byte(k), time.Hour))
	}

	n, err := s.Invalidate(ctx, "research:*")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, s.Exists(ctx, "research:htmx"))
	assert.True(t, s.Exists(ctx, "artifact:htmx"))

	_, err = s.Invalidate(ctx, "[")
	assert.Error(t, err)
}

func TestStore_JSONHelpers(t *testing.T) {
	s := newTestStore(t, nil, CacheOptions{}, newTestClock())
	ctx := context.Background()

	type profile struct {
		Name     string   `json:"name"`
		Aliases  []string `json:"aliases"`
		Priority int      `json:"priority"`
	}
	in := profile{Name: "htmx", Aliases: []string{"htmx.org"}, Priority: 2}
	require.NoError(t, s.SetJSON(ctx, BuildCacheKey(CacheKeyResearch, "htmx"), in, time.Hour))

	var out profile
	require.NoError(t, s.GetJSON(ctx, "research:htmx", &out))
	assert.Equal(t, in, out)

	assert.ErrorIs(t, s.GetJSON(ctx, "research:none", &out), ErrCacheNotFound)

	require.NoError(t, s.Set(ctx, "raw", []byte("{not json"), time.Hour))
	var cacheErr *CacheError
	assert.True(t, errors.As(s.GetJSON(ctx, "raw", &out), &cacheErr))
}

func TestStore_SweepRemovesExpiredAndEvictsLRU(t *testing.T) {
	clock := newTestClock()
	s := newTestStore(t, nil, CacheOptions{MaxSizeBytes: 2500}, clock)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", randomBytes(t, 1000), -1))
	clock.Advance(time.Second)
	require.NoError(t, s.Set(ctx, "b", randomBytes(t, 1000), -1))
	clock.Advance(time.Second)
	require.NoError(t, s.Set(ctx, "c", randomBytes(t, 1000), -1))
	clock.Advance(time.Second)
	require.NoError(t, s.Set(ctx, "short", []byte("tiny"), time.Second))
	clock.Advance(time.Second)

	_, err := s.Get(ctx, "a")
	require.NoError(t, err)
	clock.Advance(time.Second)

	report, err := s.Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Scanned)
	assert.Equal(t, 1, report.Expired)
	assert.Equal(t, 1, report.Evicted)
	assert.LessOrEqual(t, report.TotalBytes, int64(2500))

	assert.True(t, s.Exists(ctx, "a"), "recently read entry survives")
	assert.False(t, s.Exists(ctx, "b"), "least recently accessed entry is evicted")
	assert.True(t, s.Exists(ctx, "c"))
	assert.Equal(t, int64(1), s.Stats().Evicted)
}

func TestStore_SweepUnderBudgetKeepsEverything(t *testing.T) {
	s := newTestStore(t, nil, CacheOptions{MaxSizeBytes: 1 << 20}, newTestClock())
	ctx := context.Background()
	for _, k := range []string{"a", "b"} {
		require.NoError(t, s.Set(ctx, k, []byte(k), time.Hour))
	}

	report, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Evicted)
	assert.True(t, s.Exists(ctx, "a"))
}

// rewriteOnRead runs hook once, after the named blob is read.
type rewriteOnRead struct {
	CacheMedium
	name string
	hook func()
}

func (m *rewriteOnRead) Read(ctx context.Context, area Area, name string) ([]byte, error) {
	raw, err := m.CacheMedium.Read(ctx, area, name)
	if m.hook != nil && area == AreaMetadata && name == m.name {
		hook := m.hook
		m.hook = nil
		hook()
	}
	return raw, err
}

func TestStore_SweepKeepsEntryRewrittenAfterListing(t *testing.T) {
	fm, err := NewFileMedium(t.TempDir())
	require.NoError(t, err)
	medium := &rewriteOnRead{CacheMedium: fm, name: sidecarName(AreaContent, "k")}
	clock := newTestClock()
	s := newTestStore(t, medium, CacheOptions{MaxSizeBytes: 1 << 20}, clock)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("old"), time.Minute))
	require.NoError(t, s.Set(ctx, "other", []byte("gone"), time.Minute))
	clock.Advance(2 * time.Minute)

	medium.hook = func() {
		require.NoError(t, s.Set(ctx, "k", []byte("fresh"), time.Hour))
	}

	report, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Nil(t, medium.hook, "sweep listed the rewritten key")
	assert.Equal(t, 1, report.Expired)

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), got)
	assert.False(t, s.Exists(ctx, "other"))
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := newTestStore(t, nil, CacheOptions{}, newTestClock())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := BuildCacheKey("k", string(rune('a'+i)))
			for j := 0; j < 20; j++ {
				assert.NoError(t, s.Set(ctx, key, []byte{byte(j)}, time.Hour))
				_, _ = s.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	entries, err := s.entries(ctx, AreaContent)
	require.NoError(t, err)
	assert.Len(t, entries, 8)
}

func TestBuildCacheKey(t *testing.T) {
	assert.Equal(t, "research:htmx", BuildCacheKey(CacheKeyResearch, "htmx"))
	assert.Equal(t, "artifact:htmx:v1", BuildCacheKey(CacheKeyArtifact, "htmx", "v1"))
}
