package model

import (
	"time"

	"StackScout/pkg/search"
)

// CodeExample is a snippet extracted from a search result.
type CodeExample struct {
	Language  string `json:"language,omitempty"`
	Code      string `json:"code"`
	SourceURL string `json:"source_url"`
}

// QualityBreakdown holds the five quality factors, each in [0,1].
type QualityBreakdown struct {
	Quantity    float64 `json:"quantity"`
	Diversity   float64 `json:"diversity"`
	Content     float64 `json:"content"`
	Credibility float64 `json:"credibility"`
	Depth       float64 `json:"depth"`
}

// ResearchResult is everything gathered about one technology.
type ResearchResult struct {
	Technology        string           `json:"technology"`
	Category          string           `json:"category"`
	Results           []search.Result  `json:"results"`
	BestPractices     []string         `json:"best_practices"`
	CodeExamples      []CodeExample    `json:"code_examples"`
	DocumentationURLs []string         `json:"documentation_urls"`
	Quality           float64          `json:"quality"`
	Confidence        float64          `json:"confidence"`
	Breakdown         QualityBreakdown `json:"breakdown"`
	Queries           []string         `json:"queries"`
	Providers         []string         `json:"providers"`
	Timestamp         time.Time        `json:"timestamp"`
}

// Artifact is a generated document for a technology.
type Artifact struct {
	Technology     string            `json:"technology"`
	Version        string            `json:"version,omitempty"`
	Format         string            `json:"format"`
	Content        string            `json:"content"`
	Quality        float64           `json:"quality"`
	QualityWarning bool              `json:"quality_warning"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	GeneratedAt    time.Time         `json:"generated_at"`
}
