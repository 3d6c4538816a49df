package streamanalytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"product-analytics/internal/common/format"
	"product-analytics/internal/common/logger"
	"product-analytics/internal/common/metrics"
	"product-analytics/internal/common/observability"
	"product-analytics/internal/models"
	resolvesalestrend "product-analytics/internal/workers/analytics/resolve-sales-trend"
	resolvetopseller "product-analytics/internal/workers/analytics/resolve-top-seller"
	segmentcustomers "product-analytics/internal/workers/analytics/segment-customers"
	searchproducts "product-analytics/internal/workers/product-search/search-products"
)

const (
	TaskType = "stream-analytics"

	chunkProduct   = "product"
	chunkDashboard = "dashboard"
	chunkError     = "error"
)

var (
	ErrInputRequired = errors.New("INPUT_REQUIRED")
	ErrClientGone    = errors.New("CLIENT_GONE")
)

// ChunkWriter delivers one JSON chunk to the caller.
type ChunkWriter interface {
	WriteChunk(v interface{}) error
}

type ProductSearcher interface {
	Execute(ctx context.Context, input *searchproducts.Input) (*searchproducts.Output, error)
}

type TopSellerResolver interface {
	Execute(ctx context.Context, input *resolvetopseller.Input) (*resolvetopseller.Output, error)
}

type SalesTrendResolver interface {
	Execute(ctx context.Context, input *resolvesalestrend.Input) (*resolvesalestrend.Output, error)
}

type Segmenter interface {
	Execute(ctx context.Context, input *segmentcustomers.Input) (*segmentcustomers.Output, error)
}

// Handler sequences product search and analytics into at most two chunks.
type Handler struct {
	config    *Config
	search    ProductSearcher
	topSeller TopSellerResolver
	trend     SalesTrendResolver
	segmenter Segmenter
	observer  observability.Observer
	logger    logger.Logger
}

func NewHandler(
	config *Config,
	search ProductSearcher,
	topSeller TopSellerResolver,
	trend SalesTrendResolver,
	segmenter Segmenter,
	observer observability.Observer,
	log logger.Logger,
) *Handler {
	if observer == nil {
		observer = observability.NewNoopObserver()
	}
	return &Handler{
		config:    config,
		search:    search,
		topSeller: topSeller,
		trend:     trend,
		segmenter: segmenter,
		observer:  observer,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// segmentTask is the customer segmenter started before product resolution
// and joined once after it.
type segmentTask struct {
	group    errgroup.Group
	cancel   context.CancelFunc
	segments []models.CustomerSegment
}

func (h *Handler) startSegmenter(ctx context.Context, query string) *segmentTask {
	ctx, cancel := context.WithCancel(ctx)
	task := &segmentTask{cancel: cancel}
	task.group.Go(func() error {
		out, err := h.segmenter.Execute(ctx, &segmentcustomers.Input{Query: query})
		if err != nil {
			return err
		}
		task.segments = out.Segments
		return nil
	})
	return task
}

// join waits for the segmenter and returns its result.
func (t *segmentTask) join() ([]models.CustomerSegment, error) {
	defer t.cancel()
	if err := t.group.Wait(); err != nil {
		return nil, err
	}
	return t.segments, nil
}

// abandon cancels the segmenter and waits for it to return.
func (t *segmentTask) abandon() {
	t.cancel()
	_ = t.group.Wait()
}

// Execute runs the pipeline and writes chunks to w. A non-nil error means
// nothing was written and the caller should report the fault itself.
func (h *Handler) Execute(ctx context.Context, input *Input, w ChunkWriter) (output *Output, err error) {
	if input == nil {
		return nil, ErrInputRequired
	}

	started := time.Now()
	output = &Output{}
	defer func() {
		metrics.AnalyticsRequests.WithLabelValues(string(output.Outcome)).Inc()
		h.logger.Info("analytics stream finished", map[string]interface{}{
			"outcome":  output.Outcome,
			"chunks":   output.Chunks,
			"duration": time.Since(started).String(),
		})
	}()

	ctx, span := h.observer.StartSpan(ctx, h.config.WorkflowName)
	defer span.End()
	span.SetInput(input)

	segments := h.startSegmenter(ctx, input.Query)

	product, err := h.resolveProduct(ctx, input.Query)
	if err != nil {
		segments.abandon()
		span.SetError(err)
		if ctx.Err() != nil {
			output.Outcome = OutcomeClientGone
			return output, fmt.Errorf("%w: %v", ErrClientGone, ctx.Err())
		}
		output.Outcome = OutcomeAborted
		return output, err
	}

	if product == nil {
		segments.abandon()
		output.Outcome = OutcomeNoProduct
		h.write(w, output, chunkError, models.ErrorChunk{Error: models.NoProductFoundMessage})
		return output, nil
	}

	output.Product = product
	if !h.write(w, output, chunkProduct, product) {
		segments.abandon()
		output.Outcome = OutcomeClientGone
		return output, nil
	}

	dashboard, err := h.analytics(ctx, product, segments)
	if err != nil {
		span.SetError(err)
		if ctx.Err() != nil {
			output.Outcome = OutcomeClientGone
			return output, nil
		}
		h.logger.Error("analytics failed after product chunk", map[string]interface{}{
			"error":     err,
			"productId": product.ProductID,
		})
		output.Outcome = OutcomeAnalyticsFailed
		h.write(w, output, chunkError, models.ErrorChunk{Error: models.AnalyticsUnavailableMessage})
		return output, nil
	}

	span.SetOutput(dashboard)
	if !h.write(w, output, chunkDashboard, dashboard) {
		output.Outcome = OutcomeClientGone
		return output, nil
	}
	output.Outcome = OutcomeComplete
	return output, nil
}

// resolveProduct returns nil without error when no product matches.
func (h *Handler) resolveProduct(ctx context.Context, query string) (*models.Product, error) {
	found, err := h.search.Execute(ctx, &searchproducts.Input{Query: query})
	if err != nil {
		return nil, err
	}

	candidates := found.FirstResults()
	if len(candidates) == 0 {
		h.logger.Info("no product found", map[string]interface{}{
			"rejected": found.Rejected,
		})
		return nil, nil
	}

	top, err := h.topSeller.Execute(ctx, &resolvetopseller.Input{Candidates: candidates})
	if err != nil {
		return nil, err
	}
	if !top.Skipped {
		h.logger.Info("top seller resolved", map[string]interface{}{
			"candidateCount": len(candidates),
			"productId":      top.Product.ProductID,
			"totalSales":     format.Abbreviate(top.TotalSales),
		})
	}
	return &top.Product, nil
}

func (h *Handler) analytics(ctx context.Context, product *models.Product, segments *segmentTask) (*models.DashboardData, error) {
	trend, err := h.trend.Execute(ctx, &resolvesalestrend.Input{ProductID: product.ProductID})
	if err != nil {
		segments.abandon()
		return nil, err
	}

	customerSegments, err := segments.join()
	if err != nil {
		return nil, err
	}
	if customerSegments == nil {
		customerSegments = []models.CustomerSegment{}
	}

	h.logger.Debug("analytics computed", map[string]interface{}{
		"productId":    product.ProductID,
		"totalSales":   format.Abbreviate(trend.Total()),
		"segmentCount": len(customerSegments),
	})

	return &models.DashboardData{
		SalesTrends:      trend.Series,
		ForecastedDemand: h.config.ForecastedDemand,
		ForecastText:     h.config.ForecastText,
		CustomerSegments: customerSegments,
	}, nil
}

// write emits one chunk and reports whether the caller received it.
func (h *Handler) write(w ChunkWriter, output *Output, kind string, v interface{}) bool {
	if err := w.WriteChunk(v); err != nil {
		h.logger.Warn("chunk write failed", map[string]interface{}{
			"kind":  kind,
			"error": err,
		})
		return false
	}
	output.Chunks++
	metrics.AnalyticsChunksEmitted.WithLabelValues(kind).Inc()
	return true
}
