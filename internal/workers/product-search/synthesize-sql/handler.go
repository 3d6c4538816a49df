package synthesizesql

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
	TaskType = "synthesize-sql"
)

var (
	ErrInputRequired = errors.New("INPUT_REQUIRED")
)

// Classifier is the input guard run before synthesis.
type Classifier interface {
	Classify(ctx context.Context, query string) (models.ClassifierVerdict, error)
}

type Handler struct {
	config     *Config
	classifier Classifier
	runner     *llm.Runner
	agent      registry.Agent
	logger     logger.Logger
}

func NewHandler(config *Config, classifier Classifier, runner *llm.Runner, agents *registry.AgentRegistry, log logger.Logger) (*Handler, error) {
	agent, ok := agents.Lookup(registry.AgentSchemaMapper)
	if !ok {
		return nil, apperrors.NewAgentNotFoundError(registry.AgentSchemaMapper)
	}
	return &Handler{
		config:     config,
		classifier: classifier,
		runner:     runner,
		agent:      agent,
		logger:     log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, ErrInputRequired
	}

	verdict, err := h.classifier.Classify(ctx, input.Query)
	if err != nil {
		return nil, err
	}
	if !verdict.IsProductQuery {
		h.logger.Info("query rejected by product check", map[string]interface{}{
			"reasoning": verdict.Reasoning,
		})
		return &Output{Rejected: true, Verdict: verdict}, nil
	}

	intents, err := h.synthesize(ctx, input.Query)
	if err != nil {
		return nil, err
	}

	return &Output{Intents: intents, Verdict: verdict}, nil
}

func (h *Handler) synthesize(ctx context.Context, query string) (intents []models.QueryIntent, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStage(TaskType, start, err) }()

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	var out mapperOutput
	if err := h.runner.Run(ctx, h.agent, query, &out); err != nil {
		h.logger.Error("sql synthesis failed", map[string]interface{}{
			"error": err,
		})
		return nil, err
	}

	h.logger.Debug("sql synthesized", map[string]interface{}{
		"intentCount": len(out.Queries),
	})
	return out.Queries, nil
}
