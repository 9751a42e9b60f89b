// Package model holds domain types shared by the biz, data and service layers.
package model

import "time"

// Profile sources.
const (
	SourceSeed    = "seed"
	SourceLearned = "learned"
)

// Maturity levels.
const (
	MaturityExperimental = "experimental"
	MaturityEmerging     = "emerging"
	MaturityStable       = "stable"
	MaturityMature       = "mature"
)

// TechnologyProfile describes a technology the classifier knows about.
type TechnologyProfile struct {
	Name       string     `json:"name"`
	Category   string     `json:"category"`
	Maturity   string     `json:"maturity,omitempty"`
	Popularity float64    `json:"popularity"`
	DocURL     string     `json:"doc_url,omitempty"`
	RepoURL    string     `json:"repo_url,omitempty"`
	Aliases    []string   `json:"aliases,omitempty"`
	Source     string     `json:"source"`
	LearnedAt  *time.Time `json:"learned_at,omitempty"`
}

// Classification is the outcome of matching a name against known technologies.
type Classification struct {
	Name    string             `json:"name"`
	Known   bool               `json:"known"`
	Match   string             `json:"match,omitempty"`
	Matcher string             `json:"matcher,omitempty"`
	Score   float64            `json:"score"`
	Profile *TechnologyProfile `json:"profile,omitempty"`
}
