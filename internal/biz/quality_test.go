package biz

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"StackScout/internal/conf"
	"StackScout/pkg/search"
)

// richResults are five results from distinct kinds of sites with code-heavy snippets.
func richResults(tech string) []search.Result {
	return []search.Result{
		{Title: tech + " documentation", URL: "https://docs." + tech + ".dev/guide/", Relevance: 0.95,
			Snippet: "Official documentation and getting started guide. Install with `npm install " + tech + "` and import the client in your code."},
		{Title: tech + " on GitHub", URL: "https://github.com/" + tech + "/" + tech, Relevance: 0.9,
			Snippet: "Source code, examples and implementation notes. You should always pin the version in production; see the API reference for details."},
		{Title: "How to use " + tech, URL: "https://stackoverflow.com/questions/1/" + tech, Relevance: 0.8,
			Snippet: "A short tutorial with a code example: `const app = " + tech + "()` configures the app. Avoid global state and prefer explicit config."},
		{Title: tech + " best practices", URL: "https://dev.to/someone/" + tech + "-best-practices", Relevance: 0.75,
			Snippet: "Best practices guide: it is recommended to keep handlers small. Example implementation with function composition and tests."},
		{Title: tech + " crash course", URL: "https://www.youtube.com/watch?v=" + tech, Relevance: 0.6,
			Snippet: "Video tutorial covering installation, configuration and a full code example of a small project built step by step."},
	}
}

func TestScoreQuality_RichResults(t *testing.T) {
	score, b := ScoreQuality(richResults("madeupxyz"), DefaultQualityWeights())

	assert.GreaterOrEqual(t, score, 0.6)
	assert.LessOrEqual(t, score, 1.0)
	assert.InDelta(t, 0.588, b.Quantity, 0.01)
	assert.Equal(t, 1.0, b.Diversity)
	assert.Equal(t, 1.0, b.Depth)
	assert.Greater(t, b.Credibility, 0.6)
}

func TestScoreQuality_Empty(t *testing.T) {
	score, b := ScoreQuality(nil, DefaultQualityWeights())
	assert.Zero(t, score)
	assert.Zero(t, b.Quantity)
}

func TestScoreQuality_SingleWeakResult(t *testing.T) {
	score, _ := ScoreQuality([]search.Result{{URL: "http://blog.example.com/post", Snippet: "meh"}}, DefaultQualityWeights())
	assert.Less(t, score, 0.6)
}

func TestScoreQuality_MoreResultsNeverLowerQuantity(t *testing.T) {
	prev := -1.0
	for n := 1; n <= 30; n++ {
		results := make([]search.Result, n)
		for i := range results {
			results[i] = search.Result{URL: fmt.Sprintf("https://site%d.com/a", i)}
		}
		_, b := ScoreQuality(results, DefaultQualityWeights())
		assert.GreaterOrEqual(t, b.Quantity, prev)
		assert.LessOrEqual(t, b.Quantity, 1.0)
		prev = b.Quantity
	}
}

func TestScoreQuality_WeightsMatter(t *testing.T) {
	results := richResults("x")[:1]
	onlyCred := QualityWeights{Credibility: 1}
	score, b := ScoreQuality(results, onlyCred)
	assert.InDelta(t, b.Credibility, score, 1e-9)
}

func TestQualityWeightsFromConf(t *testing.T) {
	assert.Equal(t, DefaultQualityWeights(), qualityWeightsFromConf(conf.QualityWeights{}))
	w := qualityWeightsFromConf(conf.QualityWeights{Quantity: 1})
	assert.Equal(t, 1.0, w.Quantity)
	assert.Zero(t, w.Depth)
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 1.0, Confidence(1, 10))
	assert.Equal(t, 0.5, Confidence(1, 0))
	assert.InDelta(t, 0.45, Confidence(0.4, 5), 1e-9)
}

func TestBuildQueries(t *testing.T) {
	q := BuildQueries("htmx", "frontend")
	assert.Equal(t, []string{
		"htmx official documentation",
		"htmx getting started tutorial",
		"htmx best practices",
		"htmx code examples",
		"htmx component patterns",
		"htmx state management",
	}, q)

	unknownCategory := BuildQueries("zig", "something-else")
	assert.Contains(t, unknownCategory, "zig architecture overview")
	assert.Len(t, unknownCategory, 5)

	assert.Nil(t, BuildQueries(" ", "general"))
}
