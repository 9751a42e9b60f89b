package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Backend kinds accepted by NewBackend.
const (
	KindSearXNG = "searxng"
	KindBrave   = "brave"
	KindGoogle  = "google"
)

const (
	userAgent       = "StackScout/1.0 (+research bot)"
	maxResponseBody = 4 << 20
)

// Backend is a raw search API client. It does no retries, rate limiting or
// circuit breaking; wrap it in Guarded for that.
type Backend interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Pinger is implemented by backends that expose a cheap liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendConfig carries the connection settings shared by all backends.
type BackendConfig struct {
	Name     string
	BaseURL  string
	APIKey   string
	EngineID string
}

// NewBackend builds the backend for kind.
func NewBackend(kind string, cfg BackendConfig, client *http.Client) (Backend, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Name == "" {
		cfg.Name = kind
	}
	switch strings.ToLower(kind) {
	case KindSearXNG:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("provider %s: base_url is required for searxng", cfg.Name)
		}
		return &SearXNG{cfg: cfg, client: client}, nil
	case KindBrave:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("provider %s: api_key is required for brave", cfg.Name)
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://api.search.brave.com"
		}
		return &Brave{cfg: cfg, client: client}, nil
	case KindGoogle:
		if cfg.APIKey == "" || cfg.EngineID == "" {
			return nil, fmt.Errorf("provider %s: api_key and engine_id are required for google", cfg.Name)
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://www.googleapis.com"
		}
		return &Google{cfg: cfg, client: client}, nil
	default:
		return nil, fmt.Errorf("provider %s: unknown backend type %q", cfg.Name, kind)
	}
}

// getJSON issues a GET and decodes a 200 response into out.
func getJSON(ctx context.Context, client *http.Client, provider, endpoint string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &ProviderError{Provider: provider, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return wrap(provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return statusError(provider, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		return &ProviderError{Provider: provider, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %v", ErrBadResponse, err)}
	}
	return nil
}

// breakingTags separate words; inline tags such as <b> do not.
var breakingTags = map[string]bool{"br": true, "p": true, "div": true, "li": true}

// plainText strips markup some APIs put into titles and snippets and
// collapses whitespace. Entities are decoded by the tokenizer.
func plainText(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); breakingTags[string(name)] {
				b.WriteByte(' ')
			}
		}
	}
}
