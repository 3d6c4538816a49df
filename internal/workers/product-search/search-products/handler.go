package searchproducts

import (
	"context"
	"errors"

	"product-analytics/internal/common/logger"
	"product-analytics/internal/common/observability"
	"product-analytics/internal/models"
	fetchproducts "product-analytics/internal/workers/product-search/fetch-products"
	guardtables "product-analytics/internal/workers/product-search/guard-tables"
	synthesizesql "product-analytics/internal/workers/product-search/synthesize-sql"
)

const (
	TaskType = "search-products"

	// productDataSpan names the span covering the guard and the fetch.
	productDataSpan = "get_product_data"
)

var (
	ErrInputRequired = errors.New("INPUT_REQUIRED")
)

type Synthesizer interface {
	Execute(ctx context.Context, input *synthesizesql.Input) (*synthesizesql.Output, error)
}

type Guard interface {
	Execute(ctx context.Context, input *guardtables.Input) (*guardtables.Output, error)
}

type Fetcher interface {
	Execute(ctx context.Context, input *fetchproducts.Input) (*fetchproducts.Output, error)
}

// Handler turns free text into product rows: synthesize, guard, fetch.
type Handler struct {
	synthesizer Synthesizer
	guard       Guard
	fetcher     Fetcher
	observer    observability.Observer
	logger      logger.Logger
}

func NewHandler(synthesizer Synthesizer, guard Guard, fetcher Fetcher, observer observability.Observer, log logger.Logger) *Handler {
	if observer == nil {
		observer = observability.NewNoopObserver()
	}
	return &Handler{
		synthesizer: synthesizer,
		guard:       guard,
		fetcher:     fetcher,
		observer:    observer,
		logger:      log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, ErrInputRequired
	}

	synth, err := h.synthesizer.Execute(ctx, &synthesizesql.Input{Query: input.Query})
	if err != nil {
		return nil, err
	}
	if synth.Rejected {
		return &Output{Rejected: true, Reasoning: synth.Verdict.Reasoning}, nil
	}
	if !models.HasExecutableSQL(synth.Intents) {
		h.logger.Info("no executable sql synthesized", map[string]interface{}{
			"intentCount": len(synth.Intents),
		})
		return &Output{}, nil
	}

	responses, err := h.productData(ctx, synth.Intents)
	if err != nil {
		return nil, err
	}
	return &Output{Responses: responses}, nil
}

func (h *Handler) productData(ctx context.Context, intents []models.QueryIntent) ([]models.DatabaseResponse, error) {
	ctx, span := h.observer.StartSpan(ctx, productDataSpan)
	defer span.End()
	span.SetInput(intents)

	if _, err := h.guard.Execute(ctx, &guardtables.Input{Intents: intents}); err != nil {
		span.SetError(err)
		return nil, err
	}

	fetched, err := h.fetcher.Execute(ctx, &fetchproducts.Input{Intents: intents})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	span.SetOutput(fetched.Responses)
	return fetched.Responses, nil
}
