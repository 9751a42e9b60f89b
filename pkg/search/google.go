package search

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const googleMaxNum = 10

// Google queries the Programmable Search (Custom Search JSON) API.
type Google struct {
	cfg    BackendConfig
	client *http.Client
}

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

func (g *Google) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	num := maxResults
	if num <= 0 || num > googleMaxNum {
		num = googleMaxNum
	}
	params := url.Values{}
	params.Set("key", g.cfg.APIKey)
	params.Set("cx", g.cfg.EngineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))
	endpoint := strings.TrimRight(g.cfg.BaseURL, "/") + "/customsearch/v1?" + params.Encode()

	var resp googleResponse
	if err := getJSON(ctx, g.client, g.cfg.Name, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(resp.Items))
	for _, r := range resp.Items {
		out = append(out, Result{
			Title:   plainText(r.Title),
			URL:     r.Link,
			Snippet: plainText(r.Snippet),
		})
	}
	return Truncate(out, maxResults), nil
}
