package biz

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StackScout/internal/model"
	"StackScout/pkg/search"
)

func newTestGenerator(t *testing.T) *MarkdownGenerator {
	t.Helper()
	g, err := NewMarkdownGenerator(testLogger())
	require.NoError(t, err)
	return g
}

func TestMarkdownGenerator_FullBrief(t *testing.T) {
	results := richResults("htmx")
	quality, breakdown := ScoreQuality(results, DefaultQualityWeights())
	res := &model.ResearchResult{
		Technology:        "htmx",
		Category:          "frontend",
		Results:           results,
		BestPractices:     ExtractBestPractices(results),
		CodeExamples:      ExtractCodeExamples(results, "htmx"),
		DocumentationURLs: DocumentationURLs(results),
		Quality:           quality,
		Confidence:        Confidence(quality, len(results)),
		Breakdown:         breakdown,
	}

	a, err := newTestGenerator(t).Generate(context.Background(), res, map[string]string{"project": "shop"})
	require.NoError(t, err)

	assert.Equal(t, "htmx", a.Technology)
	assert.Equal(t, "markdown", a.Format)
	assert.Equal(t, "frontend", a.Metadata["category"])
	assert.False(t, a.QualityWarning)
	assert.InDelta(t, search.Clamp(0.7*quality+0.3), a.Quality, 1e-9)
	assert.False(t, a.GeneratedAt.IsZero())

	c := a.Content
	assert.True(t, strings.HasPrefix(c, "# htmx\n"))
	assert.Contains(t, c, "Category: frontend")
	assert.Contains(t, c, "Prepared for: shop")
	assert.Contains(t, c, "## Documentation\n")
	assert.Contains(t, c, "- https://docs.htmx.dev/guide/")
	assert.Contains(t, c, "## Best practices\n")
	assert.Contains(t, c, "## Code examples\n")
	assert.Contains(t, c, "npm install htmx")
	assert.Contains(t, c, "[htmx on GitHub](https://github.com/htmx/htmx) (repository)")
	assert.NotContains(t, c, "below the acceptance threshold")
}

func TestMarkdownGenerator_EmptyResearch(t *testing.T) {
	a, err := newTestGenerator(t).Generate(context.Background(), &model.ResearchResult{Technology: "bare", Quality: 0.5}, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.35, a.Quality, 1e-9)
	assert.NotContains(t, a.Content, "## Documentation")
	assert.NotContains(t, a.Content, "## Code examples")
	assert.Contains(t, a.Content, "## Sources")
}

func TestMarkdownGenerator_QualityWarning(t *testing.T) {
	a, err := newTestGenerator(t).Generate(context.Background(), &model.ResearchResult{Technology: "weak"}, map[string]string{"quality_warning": "true"})
	require.NoError(t, err)
	assert.Contains(t, a.Content, "below the acceptance threshold")
}

func TestMarkdownGenerator_LimitsSources(t *testing.T) {
	var results []search.Result
	for i := 0; i < 15; i++ {
		results = append(results, search.Result{Title: "r", URL: "https://example.com/" + strings.Repeat("x", i+1)})
	}
	a, err := newTestGenerator(t).Generate(context.Background(), &model.ResearchResult{Technology: "many", Results: results}, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, strings.Count(a.Content, "- [r]("))
}

func TestMarkdownGenerator_Errors(t *testing.T) {
	g := newTestGenerator(t)

	_, err := g.Generate(context.Background(), nil, nil)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Generate(ctx, &model.ResearchResult{Technology: "x"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
