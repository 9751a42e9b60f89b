package biz

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pmezard/go-difflib/difflib"

	"StackScout/internal/conf"
	"StackScout/internal/model"
)

const (
	defaultSimilarityThreshold = 0.7
	defaultMemoSize            = 1024

	// minSubstringLen keeps two-letter names such as "go" from matching
	// every word that contains them.
	minSubstringLen  = 3
	normalizedScore  = 0.95
	suggestMinScore  = 0.5
	defaultSuggested = 5
)

var (
	versionSuffix = regexp.MustCompile(`[\s\-_.@]*v?\d+(\.\d+)*$`)
	spaces        = regexp.MustCompile(`\s+`)
	// packagingSuffixes are stripped by the normalized matcher, longest first.
	packagingSuffixes = []string{".js", "-js", "js", "-lang", "lang", "-cli", "-sdk", "-py", "-rs"}
)

type candidate struct {
	name  string
	score float64
}

// matcher is one named strategy of the classification pipeline.
type matcher struct {
	name  string
	match func(q string, k *knowledge) (candidate, bool)
}

// knowledge is the known-technology set. Guarded by Classifier.mu.
type knowledge struct {
	profiles map[string]*model.TechnologyProfile
	aliases  map[string]string
	names    []string
}

func newKnowledge() *knowledge {
	return &knowledge{
		profiles: make(map[string]*model.TechnologyProfile),
		aliases:  make(map[string]string),
	}
}

func (k *knowledge) add(p *model.TechnologyProfile) {
	k.profiles[p.Name] = p
	for _, a := range p.Aliases {
		if _, isName := k.profiles[a]; !isName && a != "" {
			k.aliases[a] = p.Name
		}
	}
	k.reindex()
}

func (k *knowledge) remove(name string) {
	delete(k.profiles, name)
	for a, target := range k.aliases {
		if target == name {
			delete(k.aliases, a)
		}
	}
	k.reindex()
}

func (k *knowledge) reindex() {
	k.names = k.names[:0]
	for name := range k.profiles {
		k.names = append(k.names, name)
	}
	sort.Strings(k.names)
}

// resolve returns the canonical name for an exact name or alias.
func (k *knowledge) resolve(q string) (string, bool) {
	if _, ok := k.profiles[q]; ok {
		return q, true
	}
	name, ok := k.aliases[q]
	return name, ok
}

// Classifier decides whether technology names are already known.
type Classifier struct {
	repo      KnowledgeRepo
	threshold float64
	matchers  []matcher
	now       func() time.Time
	logger    *log.Helper

	mu   sync.RWMutex
	k    *knowledge
	memo *lru.Cache[string, model.Classification]
}

// NewClassifier builds the known set from the built-in seeds, the configured
// seeds and every technology stored in repo. A failing repo is logged and
// the classifier starts from seeds only.
func NewClassifier(c *conf.Classifier, repo KnowledgeRepo, logger log.Logger) (*Classifier, error) {
	threshold, memoSize := defaultSimilarityThreshold, defaultMemoSize
	var seeds []*conf.Seed
	if c != nil {
		if c.SimilarityThreshold > 0 {
			threshold = c.SimilarityThreshold
		}
		if c.MemoSize > 0 {
			memoSize = c.MemoSize
		}
		seeds = c.Seeds
	}
	memo, err := lru.New[string, model.Classification](memoSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create classification memo: %w", err)
	}

	cl := &Classifier{
		repo:      repo,
		threshold: threshold,
		now:       time.Now,
		logger:    log.NewHelper(logger),
		k:         newKnowledge(),
		memo:      memo,
	}
	cl.matchers = []matcher{
		{name: "substring", match: matchSubstring},
		{name: "fuzzy", match: matchFuzzy},
		{name: "normalized", match: matchNormalized},
	}

	for i := range builtinSeeds {
		p := builtinSeeds[i]
		cl.k.add(seedProfile(p))
	}
	for _, s := range seeds {
		if s == nil || normalizeTechName(s.Name) == "" {
			continue
		}
		cl.k.add(seedProfile(model.TechnologyProfile{
			Name:       s.Name,
			Category:   s.Category,
			Maturity:   s.Maturity,
			Popularity: s.Popularity,
			DocURL:     s.DocURL,
			RepoURL:    s.RepoURL,
			Aliases:    s.Aliases,
		}))
	}

	if repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		learned, err := repo.List(ctx)
		if err != nil {
			cl.logger.Warnw("msg", "failed to load learned technologies, starting from seeds", "error", err)
		}
		for _, p := range learned {
			cp := normalizeProfile(*p)
			cp.Source = model.SourceLearned
			cl.k.add(&cp)
		}
	}
	cl.logger.Infow("msg", "classifier ready", "known", len(cl.k.names), "threshold", threshold)
	return cl, nil
}

func seedProfile(p model.TechnologyProfile) *model.TechnologyProfile {
	cp := normalizeProfile(p)
	cp.Source = model.SourceSeed
	return &cp
}

func normalizeProfile(p model.TechnologyProfile) model.TechnologyProfile {
	p.Name = normalizeTechName(p.Name)
	aliases := make([]string, 0, len(p.Aliases))
	for _, a := range p.Aliases {
		if a = normalizeTechName(a); a != "" && a != p.Name {
			aliases = append(aliases, a)
		}
	}
	p.Aliases = aliases
	if p.Category == "" {
		p.Category = synthesizeCategory(p.Name)
	}
	return p
}

func normalizeTechName(name string) string {
	return spaces.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), " ")
}

// Threshold returns the similarity score at which a name counts as known.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// Classify matches name against the known set. Exact and alias matches
// short-circuit with score 1. Otherwise every remaining matcher proposes a
// candidate; the highest score wins and ties go to the earlier matcher.
func (c *Classifier) Classify(name string) model.Classification {
	q := normalizeTechName(name)
	if q == "" {
		return model.Classification{Name: name}
	}
	if hit, ok := c.memo.Get(q); ok {
		hit.Name = name
		return hit
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	res := model.Classification{Name: name}
	if p, ok := c.k.profiles[q]; ok {
		res.Known, res.Match, res.Matcher, res.Score = true, p.Name, "exact", 1
	} else if target, ok := c.k.aliases[q]; ok {
		res.Known, res.Match, res.Matcher, res.Score = true, target, "alias", 1
	} else {
		for _, m := range c.matchers {
			cand, ok := m.match(q, c.k)
			if !ok || cand.score <= res.Score {
				continue
			}
			res.Match, res.Matcher, res.Score = cand.name, m.name, cand.score
		}
		res.Known = res.Score >= c.threshold
	}
	if res.Known {
		cp := *c.k.profiles[res.Match]
		res.Profile = &cp
	}

	// Added under the read lock so Learn's purge cannot interleave.
	c.memo.Add(q, res)
	return res
}

// DetectUnknown returns the names that are not known, in input order,
// without duplicates. Blank names are ignored.
func (c *Classifier) DetectUnknown(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	var unknown []string
	for _, name := range names {
		q := normalizeTechName(name)
		if q == "" {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		if !c.Classify(name).Known {
			unknown = append(unknown, strings.TrimSpace(name))
		}
	}
	return unknown
}

// Profile returns the profile of the technology name resolves to.
func (c *Classifier) Profile(name string) (*model.TechnologyProfile, bool) {
	res := c.Classify(name)
	if !res.Known {
		return nil, false
	}
	return res.Profile, true
}

// SuggestSimilar ranks known names by similarity to name. limit <= 0 uses 5.
func (c *Classifier) SuggestSimilar(name string, limit int) []string {
	q := normalizeTechName(name)
	if q == "" {
		return nil
	}
	if limit <= 0 {
		limit = defaultSuggested
	}

	c.mu.RLock()
	cands := make([]candidate, 0, len(c.k.names))
	for _, known := range c.k.names {
		if known == q {
			continue
		}
		score := similarity(q, known)
		if s := substringScore(q, known); s > score {
			score = s
		}
		if score >= suggestMinScore {
			cands = append(cands, candidate{name: known, score: score})
		}
	}
	c.mu.RUnlock()

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].name < cands[j].name
	})
	if len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]string, 0, len(cands))
	for _, cand := range cands {
		out = append(out, cand.name)
	}
	return out
}

// Learn adds a technology to the known set and persists it. A persistence
// failure is logged; the technology is still known for this process.
// Learning a seed only adds new aliases.
func (c *Classifier) Learn(ctx context.Context, p model.TechnologyProfile) error {
	p = normalizeProfile(p)
	if p.Name == "" {
		return fmt.Errorf("technology name is required")
	}
	p.Source = model.SourceLearned
	if p.LearnedAt == nil {
		now := c.now()
		p.LearnedAt = &now
	}

	c.mu.Lock()
	if existing, ok := c.k.profiles[p.Name]; ok && existing.Source == model.SourceSeed {
		merged := *existing
		merged.Aliases = mergeAliases(existing.Aliases, p.Aliases)
		c.k.add(&merged)
		c.memo.Purge()
		c.mu.Unlock()
		return nil
	}
	c.k.add(&p)
	c.memo.Purge()
	c.mu.Unlock()

	if c.repo != nil {
		if err := c.repo.Save(ctx, &p); err != nil {
			c.logger.Warnw("msg", "failed to persist learned technology (degraded mode)", "name", p.Name, "error", err)
		}
	}
	c.logger.Infow("msg", "technology learned", "name", p.Name, "category", p.Category, "aliases", p.Aliases)
	return nil
}

// Forget removes a learned technology. Seeds cannot be forgotten.
func (c *Classifier) Forget(ctx context.Context, name string) (bool, error) {
	q := normalizeTechName(name)

	c.mu.Lock()
	target, ok := c.k.resolve(q)
	if !ok || c.k.profiles[target].Source != model.SourceLearned {
		c.mu.Unlock()
		return false, nil
	}
	c.k.remove(target)
	c.memo.Purge()
	c.mu.Unlock()

	if c.repo != nil {
		if err := c.repo.Delete(ctx, target); err != nil {
			return true, fmt.Errorf("failed to forget technology %s: %w", target, err)
		}
	}
	c.logger.Infow("msg", "technology forgotten", "name", target)
	return true, nil
}

// Synthesize infers a profile for an unknown name, mainly its category.
func (c *Classifier) Synthesize(name string) model.TechnologyProfile {
	q := normalizeTechName(name)
	return model.TechnologyProfile{
		Name:     q,
		Category: synthesizeCategory(q),
		Maturity: model.MaturityExperimental,
	}
}

// Known returns every known profile ordered by name.
func (c *Classifier) Known() []model.TechnologyProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.TechnologyProfile, 0, len(c.k.names))
	for _, name := range c.k.names {
		out = append(out, *c.k.profiles[name])
	}
	return out
}

func mergeAliases(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// categoryHints map name fragments to a category, checked in order.
var categoryHints = []struct {
	category string
	hints    []string
}{
	{"database", []string{"db", "sql", "mongo", "redis", "cassandra", "dynamo", "elastic", "neo4j", "cache"}},
	{"testing", []string{"test", "jest", "mocha", "cypress", "playwright", "selenium", "vitest"}},
	{"devops", []string{"docker", "k8s", "kube", "helm", "terraform", "ansible", "ci", "deploy", "cloud", "aws", "gcp", "azure"}},
	{"ml", []string{"ml", "ai", "torch", "tensor", "learn", "llm", "gpt", "keras", "pandas", "numpy"}},
	{"frontend", []string{"react", "vue", "svelte", "angular", "css", "ui", "htmx", "solid", "preact", "vite", ".js", "js"}},
	{"backend", []string{"api", "server", "http", "rest", "grpc", "graphql", "framework", "express", "django", "flask", "rails"}},
	{"runtime", []string{"runtime", "node", "deno", "bun", "wasm"}},
}

func synthesizeCategory(name string) string {
	for _, h := range categoryHints {
		for _, hint := range h.hints {
			if strings.Contains(name, hint) {
				return h.category
			}
		}
	}
	return "general"
}

// similarity is the difflib ratio over characters.
func similarity(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}

// substringScore scores containment in either direction, 0 if none.
func substringScore(a, b string) float64 {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) < minSubstringLen || !strings.Contains(long, short) {
		return 0
	}
	return 0.6 + 0.4*float64(len(short))/float64(len(long))
}

func matchSubstring(q string, k *knowledge) (candidate, bool) {
	var best candidate
	for _, name := range k.names {
		if s := substringScore(q, name); s > best.score {
			best = candidate{name: name, score: s}
		}
	}
	for alias, target := range k.aliases {
		if s := substringScore(q, alias); s > best.score || (s == best.score && s > 0 && target < best.name) {
			best = candidate{name: target, score: s}
		}
	}
	return best, best.score > 0
}

func matchFuzzy(q string, k *knowledge) (candidate, bool) {
	var best candidate
	for _, name := range k.names {
		if s := similarity(q, name); s > best.score {
			best = candidate{name: name, score: s}
		}
	}
	for alias, target := range k.aliases {
		if s := similarity(q, alias); s > best.score || (s == best.score && s > 0 && target < best.name) {
			best = candidate{name: target, score: s}
		}
	}
	return best, best.score > 0
}

// matchNormalized strips version and packaging suffixes and retries the
// exact and alias lookups.
func matchNormalized(q string, k *knowledge) (candidate, bool) {
	forms := []string{strings.TrimSpace(versionSuffix.ReplaceAllString(q, ""))}
	for _, f := range append([]string(nil), forms[0], q) {
		for _, suffix := range packagingSuffixes {
			if strings.HasSuffix(f, suffix) && len(f) > len(suffix) {
				forms = append(forms, strings.TrimRight(strings.TrimSuffix(f, suffix), " -_."))
			}
		}
	}
	for _, f := range forms {
		if f == "" || f == q {
			continue
		}
		if name, ok := k.resolve(f); ok {
			return candidate{name: name, score: normalizedScore}, true
		}
	}
	return candidate{}, false
}
