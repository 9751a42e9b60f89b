package data

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StackScout/internal/conf"
	"StackScout/pkg/breaker"
	"StackScout/pkg/crypto"
	"StackScout/pkg/search"
)

var testEncryptionKey = []byte("0123456789abcdef0123456789abcdef")

func newBraveServer(t *testing.T, wantToken string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subscription-Token") != wantToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"web":{"results":[{"title":"htmx docs","url":"https://htmx.org/docs/","description":"htmx reference"}]}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewSearchProviders(t *testing.T) {
	aes, err := crypto.NewAESCrypto(testEncryptionKey)
	require.NoError(t, err)
	sealed, err := aes.Seal("brave-token")
	require.NoError(t, err)

	srv := newBraveServer(t, "brave-token")
	cs := []*conf.Provider{
		{Name: "brave", Type: search.KindBrave, Enabled: true, Priority: 1, BaseURL: srv.URL, APIKey: sealed, Timeout: time.Second},
		{Name: "google", Type: search.KindGoogle, Enabled: false, Priority: 2},
		nil,
	}

	registry := breaker.NewRegistry()
	providers, err := NewSearchProviders(cs, nil, registry, NewBreakerStateRepo(nil, log.DefaultLogger), aes, log.DefaultLogger)
	require.NoError(t, err)
	require.Len(t, providers, 1, "disabled provider with invalid settings is skipped")

	p := providers[0]
	assert.Equal(t, "brave", p.Name())
	assert.True(t, p.Enabled())
	assert.Equal(t, 1, p.Priority())

	results, err := p.Search(context.Background(), "htmx", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "brave", results[0].Source)
	assert.Equal(t, []string{"brave"}, registry.Names())
}

func TestNewSearchProviders_Errors(t *testing.T) {
	t.Run("sealed key without encryption key", func(t *testing.T) {
		cs := []*conf.Provider{{Name: "brave", Type: search.KindBrave, Enabled: true, APIKey: crypto.SealedPrefix + "abc"}}
		_, err := NewSearchProviders(cs, nil, breaker.NewRegistry(), nil, nil, log.DefaultLogger)
		assert.ErrorIs(t, err, crypto.ErrNoKey)
	})

	t.Run("enabled provider with invalid settings", func(t *testing.T) {
		cs := []*conf.Provider{{Name: "searxng", Type: search.KindSearXNG, Enabled: true}}
		_, err := NewSearchProviders(cs, nil, breaker.NewRegistry(), nil, nil, log.DefaultLogger)
		assert.Error(t, err)
	})

	t.Run("bad proxy url", func(t *testing.T) {
		cs := []*conf.Provider{{Name: "searxng", Type: search.KindSearXNG, Enabled: true, BaseURL: "http://localhost", ProxyURL: "ftp://proxy"}}
		_, err := NewSearchProviders(cs, nil, breaker.NewRegistry(), nil, nil, log.DefaultLogger)
		assert.Error(t, err)
	})
}

func TestNewSearchProviders_RestoresOpenCircuit(t *testing.T) {
	mr := miniredis.RunT(t)
	repo := NewBreakerStateRepo(newTestRedis(t, mr), log.DefaultLogger)
	require.NoError(t, repo.Save(context.Background(), breaker.Snapshot{
		Name:     "searxng",
		State:    breaker.StateOpen,
		OpenedAt: time.Now(),
		Timeout:  time.Minute,
	}))

	cs := []*conf.Provider{{Name: "searxng", Type: search.KindSearXNG, Enabled: true, BaseURL: "http://127.0.0.1:1"}}
	providers, err := NewSearchProviders(cs, &conf.Breaker{Timeout: time.Minute, MaxTimeout: time.Hour}, breaker.NewRegistry(), repo, nil, log.DefaultLogger)
	require.NoError(t, err)
	require.Len(t, providers, 1)

	_, err = providers[0].Search(context.Background(), "htmx", 5)
	assert.True(t, breaker.IsOpen(err))
}
