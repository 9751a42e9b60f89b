package biz

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/errgroup"

	"StackScout/internal/conf"
	"StackScout/internal/data"
	"StackScout/internal/metrics"
	"StackScout/internal/model"
	"StackScout/pkg/search"
)

var (
	// ErrNoTechnologies rejects an empty batch.
	ErrNoTechnologies = errors.BadRequest("NO_TECHNOLOGIES", "at least one technology name is required")
	// ErrArtifactNotFound is returned when no artifact is stored for a technology.
	ErrArtifactNotFound = errors.NotFound("ARTIFACT_NOT_FOUND", "no artifact stored for technology")
)

// ResearchConfig holds the research thresholds.
type ResearchConfig struct {
	MaxConcurrent      int
	Timeout            time.Duration
	MaxResultsPerQuery int
	MergeResults       bool
	MinRelevance       float64
	MinQuality         float64
	CacheMaxAge        time.Duration
	Weights            QualityWeights
}

// ResearchConfigFromConf applies defaults to the configuration section.
func ResearchConfigFromConf(c *conf.Research) ResearchConfig {
	rc := ResearchConfig{
		MaxConcurrent:      5,
		Timeout:            5 * time.Minute,
		MaxResultsPerQuery: 10,
		MergeResults:       true,
		MinRelevance:       0.3,
		MinQuality:         0.6,
		CacheMaxAge:        7 * 24 * time.Hour,
		Weights:            DefaultQualityWeights(),
	}
	if c == nil {
		return rc
	}
	if c.MaxConcurrentRequests > 0 {
		rc.MaxConcurrent = c.MaxConcurrentRequests
	}
	if c.Timeout > 0 {
		rc.Timeout = c.Timeout
	}
	if c.MaxResultsPerQuery > 0 {
		rc.MaxResultsPerQuery = c.MaxResultsPerQuery
	}
	rc.MergeResults = c.MergeResults
	rc.MinRelevance = c.MinRelevance
	rc.MinQuality = c.MinQuality
	if c.CacheMaxAge > 0 {
		rc.CacheMaxAge = c.CacheMaxAge
	}
	rc.Weights = qualityWeightsFromConf(c.QualityWeights)
	return rc
}

// ResearchUsecase runs research batches: classify, reuse cached research,
// search, score, generate and learn, one technology at a time per worker.
type ResearchUsecase struct {
	searcher   Searcher
	classifier *Classifier
	cache      ResearchCache
	generator  ArtifactGenerator
	sessions   *SessionManager
	cfg        ResearchConfig
	metrics    *metrics.Metrics
	now        func() time.Time
	logger     *log.Helper

	wg sync.WaitGroup
}

// NewResearchUsecase wires the research orchestrator.
func NewResearchUsecase(
	c *conf.Research,
	searcher Searcher,
	classifier *Classifier,
	cache ResearchCache,
	generator ArtifactGenerator,
	sessions *SessionManager,
	m *metrics.Metrics,
	logger log.Logger,
) *ResearchUsecase {
	return &ResearchUsecase{
		searcher:   searcher,
		classifier: classifier,
		cache:      cache,
		generator:  generator,
		sessions:   sessions,
		cfg:        ResearchConfigFromConf(c),
		metrics:    m,
		now:        time.Now,
		logger:     log.NewHelper(logger),
	}
}

func researchKey(name string) string {
	return data.BuildCacheKey(data.CacheKeyResearch, normalizeTechName(name))
}

func artifactNamespace(name string) string {
	return data.BuildCacheKey(data.CacheKeyArtifact, normalizeTechName(name))
}

// prepare trims and dedupes the batch and checks batch-fatal conditions.
func (uc *ResearchUsecase) prepare(technologies []string) ([]string, error) {
	seen := make(map[string]struct{}, len(technologies))
	batch := make([]string, 0, len(technologies))
	for _, t := range technologies {
		t = strings.TrimSpace(t)
		key := normalizeTechName(t)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		batch = append(batch, t)
	}
	if len(batch) == 0 {
		return nil, ErrNoTechnologies
	}
	if len(uc.classifier.DetectUnknown(batch)) > 0 && !uc.searcher.HasProviders() {
		return nil, ErrNoProviders
	}
	return batch, nil
}

// StartResearch creates a session and researches the batch in the
// background. The returned id is used with Progress.
func (uc *ResearchUsecase) StartResearch(ctx context.Context, technologies []string, genCtx map[string]string) (string, error) {
	batch, err := uc.prepare(technologies)
	if err != nil {
		return "", err
	}
	s := uc.sessions.Create(batch)

	uc.wg.Add(1)
	go func() {
		defer uc.wg.Done()
		uc.run(context.WithoutCancel(ctx), s.ID, batch, genCtx)
	}()
	return s.ID, nil
}

// Research researches the batch and returns the finished session.
func (uc *ResearchUsecase) Research(ctx context.Context, technologies []string, genCtx map[string]string) (*Session, error) {
	batch, err := uc.prepare(technologies)
	if err != nil {
		return nil, err
	}
	s := uc.sessions.Create(batch)
	uc.run(ctx, s.ID, batch, genCtx)
	return uc.sessions.Get(s.ID)
}

// Progress returns a snapshot of a session.
func (uc *ResearchUsecase) Progress(id string) (*Session, error) {
	return uc.sessions.Get(id)
}

// Wait blocks until every background batch has finished.
func (uc *ResearchUsecase) Wait() {
	uc.wg.Wait()
}

// run researches at most MaxConcurrent technologies at a time. Failures are
// recorded per technology and never stop the siblings.
func (uc *ResearchUsecase) run(ctx context.Context, sessionID string, batch []string, genCtx map[string]string) {
	defer func() {
		if r := recover(); r != nil {
			uc.logger.Errorw("msg", "research batch panicked", "session_id", sessionID, "panic", r, "stack", string(debug.Stack()))
			_ = uc.sessions.Abort(sessionID, fmt.Errorf("internal error: %v", r))
		}
	}()

	g := new(errgroup.Group)
	g.SetLimit(uc.cfg.MaxConcurrent)
	for _, tech := range batch {
		g.Go(func() error {
			uc.researchOne(ctx, sessionID, tech, genCtx)
			return nil
		})
	}
	_ = g.Wait()
}

func (uc *ResearchUsecase) researchOne(ctx context.Context, sessionID, tech string, genCtx map[string]string) {
	start := uc.now()
	uc.metrics.ResearchStarted()
	defer uc.metrics.ResearchDone()

	fail := func(err error) {
		uc.logger.Warnw("msg", "technology research failed", "session_id", sessionID, "technology", tech, "error", err)
		if ferr := uc.sessions.Fail(sessionID, tech, err); ferr != nil {
			uc.logger.Errorw("msg", "failed to record research failure", "session_id", sessionID, "technology", tech, "error", ferr)
		}
		uc.metrics.ObserveResearch(string(TechFailed), uc.now().Sub(start), 0)
	}
	defer func() {
		if r := recover(); r != nil {
			uc.logger.Errorw("msg", "technology research panicked", "technology", tech, "panic", r, "stack", string(debug.Stack()))
			fail(fmt.Errorf("internal error: %v", r))
		}
	}()

	if err := uc.sessions.Start(sessionID, tech); err != nil {
		fail(err)
		return
	}

	tctx, cancel := context.WithTimeout(ctx, uc.cfg.Timeout)
	defer cancel()

	outcome, err := uc.process(tctx, tech, genCtx)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(tctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("research timed out after %s: %w", uc.cfg.Timeout, err)
		}
		fail(err)
		return
	}

	if err := uc.sessions.Complete(sessionID, *outcome); err != nil {
		uc.logger.Errorw("msg", "failed to record research outcome", "session_id", sessionID, "technology", tech, "error", err)
		return
	}
	uc.metrics.ObserveResearch(string(TechCompleted), uc.now().Sub(start), outcome.Quality)
	uc.logger.Infow("msg", "technology research completed",
		"session_id", sessionID,
		"technology", tech,
		"known", outcome.Known,
		"cached", outcome.Cached,
		"quality", outcome.Quality,
		"quality_warning", outcome.QualityWarning,
		"artifact_version", outcome.ArtifactVersion)
}

// process runs the workflow for one technology.
func (uc *ResearchUsecase) process(ctx context.Context, tech string, genCtx map[string]string) (*Outcome, error) {
	outcome := &Outcome{Technology: tech}

	if cls := uc.classifier.Classify(tech); cls.Known {
		outcome.Known = true
		outcome.Profile = cls.Profile
		if v, err := uc.cache.Latest(ctx, artifactNamespace(cls.Match)); err == nil {
			outcome.ArtifactVersion = v.ID
		}
		return outcome, nil
	}

	if cached, ok := uc.freshResearch(ctx, tech); ok {
		outcome.Cached = true
		outcome.Result = cached
		outcome.Quality = cached.Quality
		if v, err := uc.cache.Latest(ctx, artifactNamespace(tech)); err == nil {
			outcome.ArtifactVersion = v.ID
			return outcome, nil
		}
		if err := uc.accept(ctx, cached, genCtx, outcome, false); err != nil {
			return nil, err
		}
		return outcome, nil
	}

	result, err := uc.investigate(ctx, tech)
	if err != nil {
		return nil, err
	}
	outcome.Result = result
	outcome.Quality = result.Quality

	if result.Quality < uc.cfg.MinQuality {
		withWarning := make(map[string]string, len(genCtx)+1)
		for k, v := range genCtx {
			withWarning[k] = v
		}
		withWarning["quality_warning"] = "true"
		artifact, err := uc.generator.Generate(ctx, result, withWarning)
		if err != nil {
			return nil, fmt.Errorf("failed to generate artifact: %w", err)
		}
		artifact.QualityWarning = true
		outcome.Artifact = artifact
		outcome.QualityWarning = true
		uc.logger.Warnw("msg", "research quality below threshold",
			"technology", tech,
			"quality", result.Quality,
			"min_quality", uc.cfg.MinQuality)
		return outcome, nil
	}

	if err := uc.accept(ctx, result, genCtx, outcome, true); err != nil {
		return nil, err
	}
	return outcome, nil
}

// accept caches the research (when fresh), generates and stores a versioned
// artifact and learns the technology.
func (uc *ResearchUsecase) accept(ctx context.Context, result *model.ResearchResult, genCtx map[string]string, outcome *Outcome, cacheResult bool) error {
	tech := result.Technology
	if cacheResult {
		if err := uc.cache.SetJSON(ctx, researchKey(tech), result, uc.cfg.CacheMaxAge); err != nil {
			uc.logger.Warnw("msg", "failed to cache research result", "technology", tech, "error", err)
		}
	}

	artifact, err := uc.generator.Generate(ctx, result, genCtx)
	if err != nil {
		return fmt.Errorf("failed to generate artifact: %w", err)
	}
	meta := map[string]string{
		"format":           artifact.Format,
		"quality":          strconv.FormatFloat(artifact.Quality, 'f', 3, 64),
		"research_quality": strconv.FormatFloat(result.Quality, 'f', 3, 64),
	}
	id, err := uc.cache.StoreVersioned(ctx, artifactNamespace(tech), []byte(artifact.Content), meta)
	if err != nil {
		uc.logger.Warnw("msg", "failed to store artifact", "technology", tech, "error", err)
	} else {
		artifact.Version = id
		outcome.ArtifactVersion = id
	}
	outcome.Artifact = artifact

	profile := uc.classifier.Synthesize(tech)
	profile.Aliases = nil
	if len(result.DocumentationURLs) > 0 {
		profile.DocURL = result.DocumentationURLs[0]
	}
	for _, r := range result.Results {
		if search.Kind(r.URL) == search.KindRepository {
			profile.RepoURL = r.URL
			break
		}
	}
	profile.Category = result.Category
	profile.Popularity = search.Clamp(float64(len(result.Results)) / saturatingResults)
	if err := uc.classifier.Learn(ctx, profile); err != nil {
		uc.logger.Warnw("msg", "failed to learn technology", "technology", tech, "error", err)
	}
	return nil
}

// freshResearch returns cached research younger than CacheMaxAge.
func (uc *ResearchUsecase) freshResearch(ctx context.Context, tech string) (*model.ResearchResult, bool) {
	var cached model.ResearchResult
	if err := uc.cache.GetJSON(ctx, researchKey(tech), &cached); err != nil {
		if !stderrors.Is(err, data.ErrCacheNotFound) {
			uc.logger.Warnw("msg", "cached research unreadable, researching again", "technology", tech, "error", err)
		}
		return nil, false
	}
	if uc.now().Sub(cached.Timestamp) > uc.cfg.CacheMaxAge {
		return nil, false
	}
	return &cached, true
}

// investigate runs every query for tech and scores the combined results.
func (uc *ResearchUsecase) investigate(ctx context.Context, tech string) (*model.ResearchResult, error) {
	profile := uc.classifier.Synthesize(tech)
	queries := BuildQueries(tech, profile.Category)

	var (
		all     []search.Result
		failed  int
		lastErr error
	)
	for _, q := range queries {
		results, err := uc.searcher.Search(ctx, q, uc.cfg.MaxResultsPerQuery, uc.cfg.MergeResults)
		if err != nil {
			if stderrors.Is(err, ErrNoProviders) {
				return nil, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			failed++
			lastErr = err
			uc.logger.Warnw("msg", "research query failed", "technology", tech, "query", q, "error", err)
			continue
		}
		all = append(all, results...)
	}
	if failed == len(queries) {
		return nil, fmt.Errorf("all %d searches failed for %s: %w", failed, tech, lastErr)
	}

	deduped := search.Dedupe(all)
	kept := deduped[:0]
	for _, r := range deduped {
		if r.Relevance >= uc.cfg.MinRelevance {
			kept = append(kept, r)
		}
	}
	search.SortByRelevance(kept)

	quality, breakdown := ScoreQuality(kept, uc.cfg.Weights)
	providers := make([]string, 0)
	seen := make(map[string]struct{})
	for _, r := range kept {
		if _, ok := seen[r.Source]; ok || r.Source == "" {
			continue
		}
		seen[r.Source] = struct{}{}
		providers = append(providers, r.Source)
	}

	uc.logger.Infow("msg", "technology researched",
		"technology", tech,
		"queries", len(queries),
		"failed_queries", failed,
		"results", len(all),
		"kept", len(kept),
		"quality", quality)

	return &model.ResearchResult{
		Technology:        tech,
		Category:          profile.Category,
		Results:           kept,
		BestPractices:     ExtractBestPractices(kept),
		CodeExamples:      ExtractCodeExamples(kept, tech),
		DocumentationURLs: DocumentationURLs(kept),
		Quality:           quality,
		Confidence:        Confidence(quality, len(kept)),
		Breakdown:         breakdown,
		Queries:           queries,
		Providers:         providers,
		Timestamp:         uc.now(),
	}, nil
}

// Review records a verdict on a technology's research. A rejection drops the
// cached research, every artifact version and the learned profile so the
// next request researches it again. It returns the artifact versions removed.
func (uc *ResearchUsecase) Review(ctx context.Context, name string, approved bool, feedback string) (int, error) {
	if normalizeTechName(name) == "" {
		return 0, ErrNoTechnologies
	}
	if approved {
		uc.logger.Infow("msg", "research approved", "technology", name, "feedback", feedback)
		return 0, nil
	}

	if err := uc.cache.Delete(ctx, researchKey(name)); err != nil {
		return 0, fmt.Errorf("failed to drop cached research for %s: %w", name, err)
	}
	removed, err := uc.cache.InvalidateNamespace(ctx, artifactNamespace(name))
	if err != nil {
		return removed, fmt.Errorf("failed to drop artifacts for %s: %w", name, err)
	}
	forgotten, err := uc.classifier.Forget(ctx, name)
	if err != nil {
		uc.logger.Warnw("msg", "failed to forget technology", "technology", name, "error", err)
	}
	uc.logger.Infow("msg", "research rejected",
		"technology", name,
		"feedback", feedback,
		"artifact_versions_removed", removed,
		"forgotten", forgotten)
	return removed, nil
}

// LatestArtifact returns the newest stored artifact of a technology.
func (uc *ResearchUsecase) LatestArtifact(ctx context.Context, name string) (*data.Version, error) {
	ns := artifactNamespace(name)
	if cls := uc.classifier.Classify(name); cls.Known {
		ns = artifactNamespace(cls.Match)
	}
	v, err := uc.cache.Latest(ctx, ns)
	if stderrors.Is(err, data.ErrCacheNotFound) && ns != artifactNamespace(name) {
		v, err = uc.cache.Latest(ctx, artifactNamespace(name))
	}
	if err != nil {
		if stderrors.Is(err, data.ErrCacheNotFound) {
			return nil, ErrArtifactNotFound
		}
		return nil, err
	}
	return v, nil
}

// CleanupSessions drops expired sessions.
func (uc *ResearchUsecase) CleanupSessions() int {
	return uc.sessions.Cleanup()
}
