// Package pipeline assembles the stage handlers into the analytics stream.
package pipeline

import (
	"fmt"

	"product-analytics/internal/common/config"
	"product-analytics/internal/common/database"
	"product-analytics/internal/common/logger"
	"product-analytics/internal/common/observability"
	"product-analytics/internal/llm"
	resolvesalestrend "product-analytics/internal/workers/analytics/resolve-sales-trend"
	resolvetopseller "product-analytics/internal/workers/analytics/resolve-top-seller"
	segmentcustomers "product-analytics/internal/workers/analytics/segment-customers"
	streamanalytics "product-analytics/internal/workers/analytics/stream-analytics"
	classifyquery "product-analytics/internal/workers/product-search/classify-query"
	fetchproducts "product-analytics/internal/workers/product-search/fetch-products"
	guardtables "product-analytics/internal/workers/product-search/guard-tables"
	searchproducts "product-analytics/internal/workers/product-search/search-products"
	synthesizesql "product-analytics/internal/workers/product-search/synthesize-sql"
	"product-analytics/pkg/registry"
)

// Deps are the external collaborators of the pipeline.
type Deps struct {
	DB        *database.SQLClient
	Completer llm.Completer
	Agents    *registry.AgentRegistry
	Observer  observability.Observer
	Logger    logger.Logger
}

// New wires every stage from configuration.
func New(cfg *config.Config, deps Deps) (*streamanalytics.Handler, error) {
	if err := deps.Agents.Require(registry.AgentProductCheck, registry.AgentSchemaMapper, registry.AgentCustomerSegmenter); err != nil {
		return nil, err
	}
	observer := deps.Observer
	if observer == nil {
		observer = observability.NewNoopObserver()
	}
	log := deps.Logger
	runner := llm.NewRunner(deps.Completer)

	classifier, err := classifyquery.NewHandler(classifyquery.LoadConfig(cfg), runner, deps.Agents, log)
	if err != nil {
		return nil, fmt.Errorf("classify-query: %w", err)
	}
	synthesizer, err := synthesizesql.NewHandler(synthesizesql.LoadConfig(cfg), classifier, runner, deps.Agents, log)
	if err != nil {
		return nil, fmt.Errorf("synthesize-sql: %w", err)
	}
	segmenter, err := segmentcustomers.NewHandler(segmentcustomers.LoadConfig(cfg), runner, deps.Agents, log)
	if err != nil {
		return nil, fmt.Errorf("segment-customers: %w", err)
	}
	trendConfig, err := resolvesalestrend.LoadConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve-sales-trend: %w", err)
	}

	search := searchproducts.NewHandler(
		synthesizer,
		guardtables.NewHandler(guardtables.LoadConfig(cfg), log),
		fetchproducts.NewHandler(fetchproducts.LoadConfig(cfg), deps.DB, log),
		observer,
		log,
	)

	return streamanalytics.NewHandler(
		streamanalytics.LoadConfig(cfg),
		search,
		resolvetopseller.NewHandler(resolvetopseller.LoadConfig(cfg), deps.DB, log),
		resolvesalestrend.NewHandler(trendConfig, deps.DB, log),
		segmenter,
		observer,
		log,
	), nil
}
