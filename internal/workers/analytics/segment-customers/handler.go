package segmentcustomers

import (
	"context"
	"errors"
	"time"

	apperrors "product-analytics/internal/common/errors"
	"product-analytics/internal/common/logger"
	"product-analytics/internal/common/metrics"
	"product-analytics/internal/llm"
	"product-analytics/pkg/registry"
)

const (
	TaskType = "segment-customers"
)

var (
	ErrInputRequired = errors.New("INPUT_REQUIRED")
)

// Handler generates customer segments for the original query text. It runs
// independently of product resolution and has no guard.
type Handler struct {
	config *Config
	runner *llm.Runner
	agent  registry.Agent
	logger logger.Logger
}

func NewHandler(config *Config, runner *llm.Runner, agents *registry.AgentRegistry, log logger.Logger) (*Handler, error) {
	agent, ok := agents.Lookup(registry.AgentCustomerSegmenter)
	if !ok {
		return nil, apperrors.NewAgentNotFoundError(registry.AgentCustomerSegmenter)
	}
	return &Handler{
		config: config,
		runner: runner,
		agent:  agent,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (output *Output, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStage(TaskType, start, err) }()

	if input == nil {
		return nil, ErrInputRequired
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	var out segmenterOutput
	if err := h.runner.Run(ctx, h.agent, input.Query, &out); err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			h.logger.Debug("segmentation cancelled", nil)
		} else {
			h.logger.Error("segmentation failed", map[string]interface{}{
				"error": err,
			})
		}
		return nil, err
	}

	h.logger.Debug("customers segmented", map[string]interface{}{
		"segmentCount": len(out.Segments),
	})
	return &Output{Segments: out.Segments}, nil
}
