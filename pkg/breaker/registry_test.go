package breaker

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetOrCreateReturnsSameInstance(t *testing.T) {
	r := NewRegistry(WithLogger(log.NewStdLogger(io.Discard)))

	var wg sync.WaitGroup
	got := make([]*Breaker, 10)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := r.GetOrCreate(DefaultConfig("searxng"))
			assert.NoError(t, err)
			got[i] = b
		}(i)
	}
	wg.Wait()

	for _, b := range got {
		assert.Same(t, got[0], b)
	}
	assert.Equal(t, []string{"searxng"}, r.Names())
}

func TestRegistry_InvalidConfig(t *testing.T) {
	r := NewRegistry()
	_, err := r.GetOrCreate(Config{})
	assert.Error(t, err)
	assert.Empty(t, r.Names())
}

func TestRegistry_SnapshotsAndReset(t *testing.T) {
	clock := newFakeClock()
	r := NewRegistry(WithClock(clock.Now), WithLogger(log.NewStdLogger(io.Discard)))

	a, err := r.GetOrCreate(Config{Name: "b-provider", FailureThreshold: 1, Timeout: time.Second})
	require.NoError(t, err)
	_, err = r.GetOrCreate(Config{Name: "a-provider"})
	require.NoError(t, err)

	_ = a.Execute(context.Background(), fail)

	snaps := r.Snapshots()
	require.Len(t, snaps, 2)
	assert.Equal(t, "a-provider", snaps[0].Name)
	assert.Equal(t, StateOpen, snaps[1].State)

	r.ResetAll()
	assert.Equal(t, StateClosed, a.State())

	assert.True(t, r.Remove("a-provider"))
	assert.False(t, r.Remove("a-provider"))
	_, ok := r.Get("a-provider")
	assert.False(t, ok)
}
