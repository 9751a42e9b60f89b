package search

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// SearXNG queries a SearXNG instance through its JSON output format.
type SearXNG struct {
	cfg    BackendConfig
	client *http.Client
}

type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (s *SearXNG) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("safesearch", "1")
	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/search?" + params.Encode()

	var resp searxngResponse
	if err := getJSON(ctx, s.client, s.cfg.Name, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, Result{
			Title:   plainText(r.Title),
			URL:     r.URL,
			Snippet: plainText(r.Content),
		})
	}
	return Truncate(out, maxResults), nil
}

// Ping checks the instance health endpoint.
func (s *SearXNG) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(s.cfg.BaseURL, "/")+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return wrap(s.cfg.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(s.cfg.Name, resp.StatusCode)
	}
	return nil
}
