// Package search defines normalized search results, the raw provider
// backends and the guarded provider wrapper used by the orchestrator.
package search

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// Result is one normalized hit from any backend.
type Result struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Snippet     string    `json:"snippet"`
	Relevance   float64   `json:"relevance"`
	Credibility float64   `json:"credibility"`
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"source"`
}

// NormalizeURL returns the lower-cased canonical form used for
// deduplication: https scheme, no "www." prefix, no default port, no
// trailing slash, query and fragment dropped.
// Unparseable input is returned trimmed and lower-cased.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(raw)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "http" {
		scheme = "https"
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimSuffix(host, ":443")
	host = strings.TrimSuffix(host, ":80")

	path := strings.TrimRight(u.EscapedPath(), "/")

	return strings.ToLower(scheme + "://" + host + path)
}

// Domain returns the host of rawURL without "www.", or "" if it has none.
func Domain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// Dedupe keeps the first result for every normalized URL, preserving order.
// Results without a URL are dropped.
func Dedupe(results []Result) []Result {
	seen := make(map[string]struct{}, len(results))
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if strings.TrimSpace(r.URL) == "" {
			continue
		}
		key := NormalizeURL(r.URL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// SortByRelevance orders results by relevance, highest first. Equal scores
// keep their input order.
func SortByRelevance(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Relevance > results[j].Relevance
	})
}

// Truncate returns at most n results; n <= 0 means no limit.
func Truncate(results []Result, n int) []Result {
	if n <= 0 || len(results) <= n {
		return results
	}
	return results[:n]
}
