package search

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const braveMaxCount = 20

// Brave queries the Brave Search web API.
type Brave struct {
	cfg    BackendConfig
	client *http.Client
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func (b *Brave) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	count := maxResults
	if count <= 0 || count > braveMaxCount {
		count = braveMaxCount
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))
	endpoint := strings.TrimRight(b.cfg.BaseURL, "/") + "/res/v1/web/search?" + params.Encode()

	header := http.Header{}
	header.Set("X-Subscription-Token", b.cfg.APIKey)

	var resp braveResponse
	if err := getJSON(ctx, b.client, b.cfg.Name, endpoint, header, &resp); err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(resp.Web.Results))
	for _, r := range resp.Web.Results {
		out = append(out, Result{
			Title:   plainText(r.Title),
			URL:     r.URL,
			Snippet: plainText(r.Description),
		})
	}
	return Truncate(out, maxResults), nil
}
