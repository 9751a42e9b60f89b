package biz

import (
	"context"

	"StackScout/internal/data"
	"StackScout/internal/model"
)

// KnowledgeRepo persists learned technologies.
// Following Kratos v2 DDD architecture, interfaces are defined in biz layer.
// Implementation is in data layer (data.TechnologyRepo).
type KnowledgeRepo interface {
	Save(ctx context.Context, p *model.TechnologyProfile) error
	Get(ctx context.Context, name string) (*model.TechnologyProfile, error)
	List(ctx context.Context) ([]*model.TechnologyProfile, error)
	Delete(ctx context.Context, name string) error
}

// ResearchCache stores research results and versioned artifacts.
// Implementation is in data layer (data.Store).
type ResearchCache interface {
	data.CacheClient
	StoreVersioned(ctx context.Context, ns string, content []byte, metadata map[string]string) (string, error)
	Latest(ctx context.Context, ns string) (*data.Version, error)
	InvalidateNamespace(ctx context.Context, ns string) (int, error)
}
