package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreRelevance(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		title   string
		snippet string
		want    float64
	}{
		{"all signals", "htmx", "htmx docs", "htmx is a library", 1.0},
		{"title only", "htmx", "htmx docs", "a library", 0.8},
		{"half overlap", "bun runtime", "Bun", "fast javascript", 0.2},
		{"nothing", "zig", "rust book", "ownership", 0},
		{"empty query", "", "anything", "anything", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ScoreRelevance(tt.query, tt.title, tt.snippet), 1e-9)
		})
	}
}

func TestScoreRelevance_Bounded(t *testing.T) {
	got := ScoreRelevance("go go go", "go go go", "go go go")
	assert.LessOrEqual(t, got, 1.0)
	assert.GreaterOrEqual(t, got, 0.0)
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"c++", "and", "c#", "tips"}, Terms("C++ and C# tips, and C++"))
}

func TestKind(t *testing.T) {
	assert.Equal(t, KindRepository, Kind("https://github.com/bigskysoftware/htmx"))
	assert.Equal(t, KindDocumentation, Kind("https://docs.python.org/3/"))
	assert.Equal(t, KindDocumentation, Kind("https://htmx.org/docs/"))
	assert.Equal(t, KindQA, Kind("https://stackoverflow.com/questions/1"))
	assert.Equal(t, KindReference, Kind("https://en.wikipedia.org/wiki/Go"))
	assert.Equal(t, KindArticle, Kind("https://dev.to/someone/post"))
	assert.Equal(t, KindWeb, Kind("https://random.example.com/post"))
}

func TestCredibilityScore(t *testing.T) {
	docs := CredibilityScore("https://docs.python.org/3/")
	blog := CredibilityScore("https://medium.com/@x/post")
	web := CredibilityScore("http://random.example.com")

	assert.Greater(t, docs, blog)
	assert.Greater(t, blog, web)
	assert.InDelta(t, 0.95, docs, 1e-9)
	assert.InDelta(t, 0.5, web, 1e-9)
	assert.InDelta(t, 0.7, CredibilityScore("https://example.org/about"), 1e-9)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1))
	assert.Equal(t, 1.0, Clamp(2))
	assert.Equal(t, 0.3, Clamp(0.3))
}
