package biz

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StackScout/internal/metrics"
	"StackScout/pkg/breaker"
	"StackScout/pkg/search"
)

// stubProvider is a search.Provider with canned behaviour.
type stubProvider struct {
	name     string
	enabled  bool
	priority int
	err      error
	results  []search.Result
	byQuery  func(query string) ([]search.Result, error)

	mu    sync.Mutex
	calls int
}

func (p *stubProvider) Name() string  { return p.name }
func (p *stubProvider) Enabled() bool { return p.enabled }
func (p *stubProvider) Priority() int { return p.priority }

func (p *stubProvider) Search(_ context.Context, query string, _ int) ([]search.Result, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.byQuery != nil {
		return p.byQuery(query)
	}
	if p.err != nil {
		return nil, p.err
	}
	out := make([]search.Result, len(p.results))
	copy(out, p.results)
	return out, nil
}

func (p *stubProvider) Health(context.Context) search.Health {
	return search.Health{Name: p.name, Enabled: p.enabled, Priority: p.priority, Healthy: p.err == nil}
}

func (p *stubProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func testLogger() log.Logger {
	return log.NewStdLogger(io.Discard)
}

func result(url string, relevance float64) search.Result {
	return search.Result{Title: url, URL: url, Relevance: relevance}
}

func TestSearchUsecase_FailoverToNextProvider(t *testing.T) {
	a := &stubProvider{name: "a", enabled: true, priority: 1, err: errors.New("connection refused")}
	b := &stubProvider{name: "b", enabled: true, priority: 2, results: []search.Result{
		result("https://example.com/one", 0.5),
		result("https://example.com/two", 0.9),
	}}
	uc := NewSearchUsecase([]search.Provider{b, a}, metrics.New(), testLogger())

	got, err := uc.Search(context.Background(), "htmx", 10, true)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://example.com/two", got[0].URL, "sorted by relevance")
	assert.Equal(t, 1, a.Calls())
	assert.Equal(t, 1, b.Calls())
}

func TestSearchUsecase_OpenCircuitIsSkipped(t *testing.T) {
	open := &stubProvider{name: "open", enabled: true, priority: 1, err: &breaker.OpenError{Name: "open"}}
	ok := &stubProvider{name: "ok", enabled: true, priority: 2, results: []search.Result{result("https://a.dev", 0.7)}}
	uc := NewSearchUsecase([]search.Provider{open, ok}, nil, testLogger())

	got, err := uc.Search(context.Background(), "q", 5, true)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSearchUsecase_MergeAndDedupe(t *testing.T) {
	a := &stubProvider{name: "a", enabled: true, priority: 1, results: []search.Result{
		{URL: "https://www.example.com/docs/", Relevance: 0.6, Source: "a"},
	}}
	b := &stubProvider{name: "b", enabled: true, priority: 2, results: []search.Result{
		{URL: "http://example.com/docs", Relevance: 0.9, Source: "b"},
		{URL: "https://other.dev/guide", Relevance: 0.8, Source: "b"},
	}}
	uc := NewSearchUsecase([]search.Provider{a, b}, nil, testLogger())

	got, err := uc.Search(context.Background(), "q", 10, true)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://other.dev/guide", got[0].URL)
	assert.Equal(t, "a", got[1].Source, "first occurrence wins on duplicates")
}

func TestSearchUsecase_NoMergeStopsAtFirstResults(t *testing.T) {
	empty := &stubProvider{name: "empty", enabled: true, priority: 1}
	a := &stubProvider{name: "a", enabled: true, priority: 2, results: []search.Result{result("https://a.dev", 0.5)}}
	b := &stubProvider{name: "b", enabled: true, priority: 3, results: []search.Result{result("https://b.dev", 0.9)}}
	uc := NewSearchUsecase([]search.Provider{a, b, empty}, nil, testLogger())

	got, err := uc.Search(context.Background(), "q", 10, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://a.dev", got[0].URL)
	assert.Equal(t, 1, empty.Calls())
	assert.Zero(t, b.Calls())
}

func TestSearchUsecase_SkipsDisabledAndTruncates(t *testing.T) {
	disabled := &stubProvider{name: "off", enabled: false, priority: 0, results: []search.Result{result("https://off.dev", 1)}}
	a := &stubProvider{name: "a", enabled: true, priority: 1, results: []search.Result{
		result("https://a.dev/1", 0.1), result("https://a.dev/2", 0.2), result("https://a.dev/3", 0.3),
	}}
	uc := NewSearchUsecase([]search.Provider{disabled, a}, nil, testLogger())

	got, err := uc.Search(context.Background(), "q", 2, true)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://a.dev/3", got[0].URL)
	assert.Zero(t, disabled.Calls())
}

func TestSearchUsecase_NoProviders(t *testing.T) {
	uc := NewSearchUsecase([]search.Provider{&stubProvider{name: "off"}}, nil, testLogger())
	assert.False(t, uc.HasProviders())

	_, err := uc.Search(context.Background(), "q", 5, true)
	assert.True(t, kerrors.Is(err, ErrNoProviders))
	assert.Equal(t, 503, kerrors.Code(err))
}

func TestSearchUsecase_AllProvidersFailed(t *testing.T) {
	cause := errors.New("boom")
	uc := NewSearchUsecase([]search.Provider{
		&stubProvider{name: "a", enabled: true, priority: 1, err: cause},
		&stubProvider{name: "b", enabled: true, priority: 2, err: cause},
	}, nil, testLogger())

	got, err := uc.Search(context.Background(), "q", 5, true)
	assert.Empty(t, got)
	assert.True(t, kerrors.Is(err, ErrAllProvidersFailed))
	assert.ErrorIs(t, err, cause)
}

func TestSearchUsecase_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	uc := NewSearchUsecase([]search.Provider{&stubProvider{name: "a", enabled: true}}, nil, testLogger())

	_, err := uc.Search(ctx, "q", 5, true)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearchUsecase_HealthInPriorityOrder(t *testing.T) {
	uc := NewSearchUsecase([]search.Provider{
		&stubProvider{name: "second", enabled: true, priority: 2},
		&stubProvider{name: "first", enabled: false, priority: 1},
	}, nil, testLogger())

	health := uc.Health(context.Background())
	require.Len(t, health, 2)
	assert.Equal(t, "first", health[0].Name)
	assert.False(t, health[0].Enabled)
}
