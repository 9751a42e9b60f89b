package biz

import (
	"math"
	"strings"

	"StackScout/internal/conf"
	"StackScout/internal/model"
	"StackScout/pkg/search"
)

// QualityWeights weight the five research quality factors.
type QualityWeights struct {
	Quantity    float64
	Diversity   float64
	Content     float64
	Credibility float64
	Depth       float64
}

// DefaultQualityWeights favour credibility slightly over the other factors.
func DefaultQualityWeights() QualityWeights {
	return QualityWeights{Quantity: 0.20, Diversity: 0.15, Content: 0.20, Credibility: 0.25, Depth: 0.20}
}

func qualityWeightsFromConf(c conf.QualityWeights) QualityWeights {
	w := QualityWeights(c)
	if w.sum() <= 0 {
		return DefaultQualityWeights()
	}
	return w
}

func (w QualityWeights) sum() float64 {
	return w.Quantity + w.Diversity + w.Content + w.Credibility + w.Depth
}

const (
	// saturatingResults is the result count at which the quantity factor reaches 1.
	saturatingResults = 20
	// saturatingDomains and saturatingKinds cap the diversity factor.
	saturatingDomains = 5
	saturatingKinds   = 4
	// fullSnippet is the snippet length that counts as substantial content.
	fullSnippet = 160
)

var contentIndicators = []string{
	"guide", "tutorial", "documentation", "docs", "example", "how to", "best practice",
	"introduction", "getting started", "reference", "overview", "api",
}

var depthIndicators = []string{
	"code", "example", "implementation", "install", "npm ", "pip ", "go get", "cargo ",
	"import ", "function", "func ", "def ", "class ", "config", "```", "$ ",
}

// ScoreQuality rates a result set on quantity (log-scaled count), diversity
// (distinct domains and source kinds), content indicators, mean source
// credibility and technical depth. The total is the weighted mean of the
// factors, clamped to [0,1].
func ScoreQuality(results []search.Result, w QualityWeights) (float64, model.QualityBreakdown) {
	var b model.QualityBreakdown
	if len(results) == 0 {
		return 0, b
	}

	n := float64(len(results))
	b.Quantity = search.Clamp(math.Log1p(n) / math.Log1p(saturatingResults))

	domains := make(map[string]struct{})
	kinds := make(map[string]struct{})
	var content, credibility, deep float64
	for _, r := range results {
		if d := search.Domain(r.URL); d != "" {
			domains[d] = struct{}{}
		}
		kinds[search.Kind(r.URL)] = struct{}{}

		text := strings.ToLower(r.Title + " " + r.Snippet)
		length := search.Clamp(float64(len(r.Snippet)) / fullSnippet)
		content += 0.5*length + 0.5*search.Clamp(float64(countIndicators(text, contentIndicators))/2)

		cred := r.Credibility
		if cred <= 0 {
			cred = search.CredibilityScore(r.URL)
		}
		credibility += search.Clamp(cred)

		if countIndicators(text, depthIndicators) > 0 {
			deep++
		}
	}
	b.Diversity = search.Clamp(0.6*float64(len(domains))/saturatingDomains + 0.4*float64(len(kinds))/saturatingKinds)
	b.Content = search.Clamp(content / n)
	b.Credibility = search.Clamp(credibility / n)
	// Half the results showing code is already a deep result set.
	b.Depth = search.Clamp(2 * deep / n)

	total := w.sum()
	if total <= 0 {
		w, total = DefaultQualityWeights(), DefaultQualityWeights().sum()
	}
	score := (w.Quantity*b.Quantity + w.Diversity*b.Diversity + w.Content*b.Content +
		w.Credibility*b.Credibility + w.Depth*b.Depth) / total
	return search.Clamp(score), b
}

// Confidence blends quality with how much evidence backs it.
func Confidence(quality float64, resultCount int) float64 {
	evidence := search.Clamp(float64(resultCount) / 10)
	return search.Clamp(0.5*quality + 0.5*evidence)
}

func countIndicators(text string, indicators []string) int {
	n := 0
	for _, ind := range indicators {
		if strings.Contains(text, ind) {
			n++
		}
	}
	return n
}
