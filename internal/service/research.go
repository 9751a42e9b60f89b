package service

import (
	"context"
	"strings"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"StackScout/internal/biz"
	pkglog "StackScout/pkg/log"
	"StackScout/pkg/metadata"
)

const defaultSimilar = 5

// ResearchService exposes research, technology and provider operations.
type ResearchService struct {
	uc         *biz.ResearchUsecase
	classifier *biz.Classifier
	search     *biz.SearchUsecase
	logger     *pkglog.LogHelper
}

// NewResearchService creates a ResearchService.
func NewResearchService(uc *biz.ResearchUsecase, classifier *biz.Classifier, search *biz.SearchUsecase, logger log.Logger) *ResearchService {
	return &ResearchService{
		uc:         uc,
		classifier: classifier,
		search:     search,
		logger:     pkglog.NewLogHelper(logger),
	}
}

func report(s *biz.Session) *SessionReport {
	r := &SessionReport{Session: s, Progress: 1}
	if total := len(s.Technologies); total > 0 {
		r.Progress = float64(s.Counters.Completed+s.Counters.Failed) / float64(total)
	}
	return r
}

// StartResearch validates the generation context and starts a batch.
func (s *ResearchService) StartResearch(ctx context.Context, req *StartResearchRequest) (*StartResearchReply, error) {
	genCtx := metadata.Context(req.Context).Normalize()
	if err := genCtx.Validate(); err != nil {
		return nil, errors.BadRequest("INVALID_CONTEXT", err.Error())
	}

	if req.Wait {
		session, err := s.uc.Research(ctx, req.Technologies, genCtx)
		if err != nil {
			return nil, err
		}
		pkglog.SetSessionID(ctx, session.ID)
		return &StartResearchReply{SessionID: session.ID, Status: string(session.Status), Session: report(session)}, nil
	}

	id, err := s.uc.StartResearch(ctx, req.Technologies, genCtx)
	if err != nil {
		return nil, err
	}
	pkglog.SetSessionID(ctx, id)
	s.logger.Research("research batch accepted", "session_id", id, "technologies", len(req.Technologies), "context", genCtx.String())

	session, err := s.uc.Progress(id)
	if err != nil {
		return nil, err
	}
	return &StartResearchReply{SessionID: id, Status: string(session.Status), Session: report(session)}, nil
}

// GetResearch reports the progress of a session.
func (s *ResearchService) GetResearch(ctx context.Context, req *GetResearchRequest) (*SessionReport, error) {
	session, err := s.uc.Progress(req.ID)
	if err != nil {
		return nil, err
	}
	pkglog.SetSessionID(ctx, session.ID)
	return report(session), nil
}

// DetectTechnologies classifies every name and lists the unknown ones.
func (s *ResearchService) DetectTechnologies(_ context.Context, req *DetectRequest) (*DetectReply, error) {
	names := make([]string, 0, len(req.Technologies))
	for _, n := range req.Technologies {
		if strings.TrimSpace(n) != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return nil, biz.ErrNoTechnologies
	}

	reply := &DetectReply{Unknown: s.classifier.DetectUnknown(names)}
	if reply.Unknown == nil {
		reply.Unknown = []string{}
	}
	for _, n := range names {
		cls := s.classifier.Classify(n)
		cls.Profile = nil
		reply.Classifications = append(reply.Classifications, cls)
	}
	return reply, nil
}

// GetTechnology returns the profile of a technology and similar known names.
func (s *ResearchService) GetTechnology(_ context.Context, req *GetTechnologyRequest) (*TechnologyReply, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, biz.ErrNoTechnologies
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSimilar
	}

	cls := s.classifier.Classify(req.Name)
	reply := &TechnologyReply{
		Name:           req.Name,
		Known:          cls.Known,
		Classification: cls,
		Profile:        cls.Profile,
		Similar:        s.classifier.SuggestSimilar(req.Name, limit),
	}
	reply.Classification.Profile = nil
	if reply.Similar == nil {
		reply.Similar = []string{}
	}
	return reply, nil
}

// ReviewTechnology records an approval or rejection of a technology's research.
func (s *ResearchService) ReviewTechnology(ctx context.Context, req *ReviewRequest) (*ReviewReply, error) {
	if req.Approved == nil {
		return nil, errors.BadRequest("APPROVED_REQUIRED", "approved must be set")
	}
	removed, err := s.uc.Review(ctx, req.Name, *req.Approved, req.Feedback)
	if err != nil {
		return nil, err
	}
	return &ReviewReply{Technology: req.Name, Approved: *req.Approved, VersionsRemoved: removed}, nil
}

// GetArtifact returns the latest stored artifact of a technology.
func (s *ResearchService) GetArtifact(ctx context.Context, req *GetArtifactRequest) (*ArtifactReply, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, biz.ErrNoTechnologies
	}
	v, err := s.uc.LatestArtifact(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	return &ArtifactReply{
		Technology: req.Name,
		Version:    v.ID,
		CreatedAt:  v.CreatedAt,
		Checksum:   v.Checksum,
		Metadata:   v.Metadata,
		Content:    string(v.Content),
	}, nil
}

// ListProviders reports provider health and breaker state in priority order.
func (s *ResearchService) ListProviders(ctx context.Context, _ *ListProvidersRequest) (*ProvidersReply, error) {
	health := s.search.Health(ctx)
	return &ProvidersReply{Available: s.search.HasProviders(), Providers: health}, nil
}
