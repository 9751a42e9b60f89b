// Package biz contains business logic layer implementations.
// This layer holds the classifier, the search and research orchestrators
// and the session bookkeeping.
package biz

import (
	"StackScout/internal/data"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewSearchUsecase,
	NewClassifier,
	NewSessionManager,
	NewMarkdownGenerator,
	NewResearchUsecase,
	// Bind implementations to biz layer interfaces
	wire.Bind(new(Searcher), new(*SearchUsecase)),
	wire.Bind(new(ArtifactGenerator), new(*MarkdownGenerator)),
	wire.Bind(new(KnowledgeRepo), new(*data.TechnologyRepo)),
	wire.Bind(new(ResearchCache), new(*data.Store)),
)
