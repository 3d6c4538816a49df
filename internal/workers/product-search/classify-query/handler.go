package classifyquery

import (
	"context"
	"errors"
	"time"

	apperrors "product-analytics/internal/common/errors"
	"product-analytics/internal/common/logger"
	"product-analytics/internal/common/metrics"
	"product-analytics/internal/llm"
	"product-analytics/internal/models"
	"product-analytics/pkg/registry"
)

const (
	TaskType = "classify-query"
)

var (
	ErrInputRequired = errors.New("INPUT_REQUIRED")
)

// Handler decides whether free text is about a sellable product.
type Handler struct {
	config *Config
	runner *llm.Runner
	agent  registry.Agent
	logger logger.Logger
}

func NewHandler(config *Config, runner *llm.Runner, agents *registry.AgentRegistry, log logger.Logger) (*Handler, error) {
	agent, ok := agents.Lookup(registry.AgentProductCheck)
	if !ok {
		return nil, apperrors.NewAgentNotFoundError(registry.AgentProductCheck)
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

	var verdict models.ClassifierVerdict
	if err := h.runner.Run(ctx, h.agent, input.Query, &verdict); err != nil {
		h.logger.Error("classification failed", map[string]interface{}{
			"error": err,
		})
		return nil, err
	}

	h.logger.Debug("query classified", map[string]interface{}{
		"isProductQuery": verdict.IsProductQuery,
		"reasoning":      verdict.Reasoning,
	})

	return &Output{Verdict: verdict}, nil
}

// Classify is the stage's function form, used as the synthesizer's input guard.
func (h *Handler) Classify(ctx context.Context, query string) (models.ClassifierVerdict, error) {
	out, err := h.Execute(ctx, &Input{Query: query})
	if err != nil {
		return models.ClassifierVerdict{}, err
	}
	return out.Verdict, nil
}
