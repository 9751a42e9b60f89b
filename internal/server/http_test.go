package server

import (
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StackScout/internal/biz"
	"StackScout/internal/conf"
	"StackScout/internal/data"
	"StackScout/internal/metrics"
	"StackScout/internal/server/middleware"
	"StackScout/internal/service"
	"StackScout/pkg/crypto"
	"StackScout/pkg/search"
)

type staticProvider struct{}

func (staticProvider) Name() string  { return "static" }
func (staticProvider) Enabled() bool { return true }
func (staticProvider) Priority() int { return 1 }

func (staticProvider) Search(_ context.Context, query string, _ int) ([]search.Result, error) {
	tech := strings.Fields(query)[0]
	return []search.Result{
		{Title: tech + " docs", URL: "https://docs." + tech + ".dev/", Relevance: 0.95, Source: "static",
			Snippet: "Official documentation and getting started guide. Install with `pip install " + tech + "` and read the API reference."},
		{Title: tech + " repo", URL: "https://github.com/" + tech + "/" + tech, Relevance: 0.9, Source: "static",
			Snippet: "Source code and examples. You should always pin the version in production deployments of the library."},
		{Title: "Q&A", URL: "https://stackoverflow.com/questions/1/" + tech, Relevance: 0.8, Source: "static",
			Snippet: "A tutorial with a code example: `app = " + tech + ".create()` sets up the app. Avoid global state in handlers."},
		{Title: "Best practices", URL: "https://dev.to/x/" + tech, Relevance: 0.75, Source: "static",
			Snippet: "Best practices guide: it is recommended to keep handlers small. Example implementation with tests."},
		{Title: "Course", URL: "https://www.youtube.com/watch?v=" + tech, Relevance: 0.6, Source: "static",
			Snippet: "Video tutorial covering installation, configuration and a full code example built step by step."},
	}, nil
}

func (staticProvider) Health(context.Context) search.Health {
	return search.Health{Name: "static", Enabled: true, Priority: 1, Healthy: true}
}

func newTestServer(t *testing.T, auth *conf.Auth, aes *crypto.AESCrypto) *http.Server {
	t.Helper()
	logger := log.NewStdLogger(io.Discard)
	m := metrics.New()
	rc := &conf.Research{MaxConcurrentRequests: 2, Timeout: 5 * time.Second, MergeResults: true, MinRelevance: 0.3, MinQuality: 0.6}

	medium, err := data.NewFileMedium(t.TempDir())
	require.NoError(t, err)
	store, err := data.NewStore(medium, data.CacheOptions{}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	classifier, err := biz.NewClassifier(nil, nil, logger)
	require.NoError(t, err)
	searcher := biz.NewSearchUsecase([]search.Provider{staticProvider{}}, m, logger)
	gen, err := biz.NewMarkdownGenerator(logger)
	require.NoError(t, err)
	sessions := biz.NewSessionManager(rc, m, logger)
	uc := biz.NewResearchUsecase(rc, searcher, classifier, store, gen, sessions, m, logger)
	svc := service.NewResearchService(uc, classifier, searcher, logger)

	srv, err := NewHTTPServer(&conf.Server{HTTP: &conf.HTTP{Addr: "127.0.0.1:0", Timeout: 10 * time.Second}}, auth, aes, svc, m, logger)
	require.NoError(t, err)
	t.Cleanup(uc.Wait)
	return srv
}

func do(t *testing.T, srv *http.Server, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHTTP_ResearchFlow(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := do(t, srv, nethttp.MethodPost, "/v1/research", `{"technologies":["python","madeupxyz"],"context":{"project":"shop"},"wait":true}`,
		middleware.RequestIDHeader, "req-123")
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "req-123", rec.Header().Get(middleware.RequestIDHeader))
	body := decode(t, rec)
	assert.Equal(t, "completed", body["status"])
	id := body["session_id"].(string)

	rec = do(t, srv, nethttp.MethodGet, "/v1/research/"+id, "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	report := decode(t, rec)
	assert.Equal(t, id, report["id"])
	assert.Equal(t, 1.0, report["progress"])

	rec = do(t, srv, nethttp.MethodGet, "/v1/artifacts/madeupxyz", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, "v1", decode(t, rec)["version"])

	rec = do(t, srv, nethttp.MethodGet, "/v1/artifacts/madeupxyz", "", "Accept", "text/markdown")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# madeupxyz"))
	assert.Equal(t, "v1", rec.Header().Get("X-Artifact-Version"))

	rec = do(t, srv, nethttp.MethodPost, "/v1/technologies/madeupxyz/review", `{"approved":false,"feedback":"wrong"}`)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decode(t, rec)["versions_removed"])

	rec = do(t, srv, nethttp.MethodGet, "/v1/artifacts/madeupxyz", "")
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
	assert.Equal(t, "ARTIFACT_NOT_FOUND", decode(t, rec)["reason"])
}

func TestHTTP_StartResearchIsAccepted(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := do(t, srv, nethttp.MethodPost, "/v1/research", `{"technologies":["rust"]}`)
	require.Equal(t, nethttp.StatusAccepted, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode(t, rec)["session_id"])
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestHTTP_Errors(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := do(t, srv, nethttp.MethodPost, "/v1/research", `{"technologies":[]}`)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
	assert.Equal(t, "NO_TECHNOLOGIES", decode(t, rec)["reason"])

	rec = do(t, srv, nethttp.MethodGet, "/v1/research/does-not-exist", "")
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", decode(t, rec)["reason"])

	rec = do(t, srv, nethttp.MethodPost, "/v1/technologies/htmx/review", `{}`)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
	assert.Equal(t, "APPROVED_REQUIRED", decode(t, rec)["reason"])
}

func TestHTTP_Technologies(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := do(t, srv, nethttp.MethodPost, "/v1/technologies/detect", `{"technologies":["k8s","madeupxyz"]}`)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"madeupxyz"}, decode(t, rec)["unknown"])

	rec = do(t, srv, nethttp.MethodGet, "/v1/technologies/postgres?limit=2", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["known"])
	assert.Equal(t, "postgresql", body["profile"].(map[string]interface{})["name"])
}

func TestHTTP_ProvidersAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := do(t, srv, nethttp.MethodGet, "/v1/providers", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["available"])
	assert.Len(t, body["providers"], 1)

	do(t, srv, nethttp.MethodPost, "/v1/research", `{"technologies":["python"],"wait":true}`)
	rec = do(t, srv, nethttp.MethodGet, "/metrics", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stackscout_research_sessions_total 1")
}

func TestHTTP_APIToken(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	aes, err := crypto.NewAESCrypto(key)
	require.NoError(t, err)
	sealed, err := aes.Seal("s3cret-token")
	require.NoError(t, err)

	srv := newTestServer(t, &conf.Auth{APIToken: sealed}, aes)

	rec := do(t, srv, nethttp.MethodGet, "/v1/providers", "")
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decode(t, rec)["reason"])

	rec = do(t, srv, nethttp.MethodGet, "/v1/providers", "", "Authorization", "Bearer wrong")
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)

	rec = do(t, srv, nethttp.MethodGet, "/v1/providers", "", "Authorization", "Bearer s3cret-token")
	assert.Equal(t, nethttp.StatusOK, rec.Code)

	rec = do(t, srv, nethttp.MethodGet, "/v1/providers", "", "X-API-Key", "s3cret-token")
	assert.Equal(t, nethttp.StatusOK, rec.Code)

	rec = do(t, srv, nethttp.MethodGet, "/metrics", "")
	assert.Equal(t, nethttp.StatusOK, rec.Code, "metrics are not behind the token")
}

func TestNewHTTPServer_SealedTokenWithoutKey(t *testing.T) {
	_, err := NewHTTPServer(&conf.Server{}, &conf.Auth{APIToken: crypto.SealedPrefix + "abc"}, nil, nil, nil, log.NewStdLogger(io.Discard))
	assert.ErrorIs(t, err, crypto.ErrNoKey)
}
