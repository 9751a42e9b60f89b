package search

import (
	"strings"
	"unicode"
)

const (
	titleMatchWeight   = 0.4
	snippetMatchWeight = 0.2
	overlapWeight      = 0.4
)

// ScoreRelevance scores a result against query when the backend gave no
// score: 0.4 if the title contains the whole query, 0.2 if the snippet
// does, plus 0.4 times the share of query terms found anywhere. Capped at 1.
func ScoreRelevance(query, title, snippet string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}
	t := strings.ToLower(title)
	s := strings.ToLower(snippet)

	var score float64
	if strings.Contains(t, q) {
		score += titleMatchWeight
	}
	if strings.Contains(s, q) {
		score += snippetMatchWeight
	}

	terms := Terms(q)
	if len(terms) > 0 {
		have := make(map[string]struct{})
		for _, w := range Terms(t + " " + s) {
			have[w] = struct{}{}
		}
		var hit int
		for _, w := range terms {
			if _, ok := have[w]; ok {
				hit++
			}
		}
		score += overlapWeight * float64(hit) / float64(len(terms))
	}
	return Clamp(score)
}

// Terms splits text into lower-cased alphanumeric words, dropping duplicates.
func Terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Clamp bounds v to [0, 1].
func Clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Source kinds reported by Kind.
const (
	KindDocumentation = "documentation"
	KindRepository    = "repository"
	KindQA            = "qa"
	KindReference     = "reference"
	KindArticle       = "article"
	KindVideo         = "video"
	KindWeb           = "web"
)

var kindByDomain = map[string]string{
	"github.com":        KindRepository,
	"gitlab.com":        KindRepository,
	"bitbucket.org":     KindRepository,
	"pkg.go.dev":        KindDocumentation,
	"docs.rs":           KindDocumentation,
	"readthedocs.io":    KindDocumentation,
	"npmjs.com":         KindRepository,
	"pypi.org":          KindRepository,
	"crates.io":         KindRepository,
	"stackoverflow.com": KindQA,
	"stackexchange.com": KindQA,
	"serverfault.com":   KindQA,
	"wikipedia.org":     KindReference,
	"medium.com":        KindArticle,
	"dev.to":            KindArticle,
	"hashnode.com":      KindArticle,
	"freecodecamp.org":  KindArticle,
	"youtube.com":       KindVideo,
	"youtu.be":          KindVideo,
}

var credibilityByKind = map[string]float64{
	KindDocumentation: 0.9,
	KindRepository:    0.85,
	KindQA:            0.75,
	KindReference:     0.75,
	KindArticle:       0.6,
	KindVideo:         0.5,
	KindWeb:           0.5,
}

// Kind classifies a URL by the type of site it points at.
func Kind(rawURL string) string {
	host := Domain(rawURL)
	if host == "" {
		return KindWeb
	}
	for d, kind := range kindByDomain {
		if host == d || strings.HasSuffix(host, "."+d) {
			return kind
		}
	}
	if strings.HasPrefix(host, "docs.") || strings.HasPrefix(host, "developer.") ||
		strings.HasPrefix(host, "developers.") {
		return KindDocumentation
	}
	lower := strings.ToLower(rawURL)
	if strings.Contains(lower, "/docs/") || strings.Contains(lower, "/documentation/") ||
		strings.HasSuffix(lower, "/docs") {
		return KindDocumentation
	}
	return KindWeb
}

// CredibilityScore estimates how trustworthy a source is from its URL.
func CredibilityScore(rawURL string) float64 {
	score := credibilityByKind[Kind(rawURL)]
	host := Domain(rawURL)
	if score == credibilityByKind[KindWeb] &&
		(strings.HasSuffix(host, ".org") || strings.HasSuffix(host, ".edu") || strings.HasSuffix(host, ".gov")) {
		score = 0.65
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(rawURL)), "https://") {
		score += 0.05
	}
	return Clamp(score)
}
