package guardtables

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "product-analytics/internal/common/errors"
	"product-analytics/internal/common/logger"
	"product-analytics/internal/common/metrics"
	"product-analytics/internal/common/sqlmeta"
)

const (
	TaskType = "guard-tables"
)

var (
	ErrInputRequired = errors.New("INPUT_REQUIRED")
)

// Handler rejects generated SQL that is not a plain read or that touches
// tables outside the allow-list. Nothing is executed.
type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (output *Output, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStage(TaskType, start, err) }()

	if input == nil {
		return nil, ErrInputRequired
	}

	seen := map[string]bool{}
	var tables, disallowed []string

	for i, intent := range input.Intents {
		if strings.TrimSpace(intent.RawSQL) == "" {
			continue
		}

		ins, err := sqlmeta.Inspect(intent.RawSQL)
		if err != nil {
			h.logger.Warn("generated sql could not be parsed", map[string]interface{}{
				"intent": i,
				"error":  err,
			})
			return nil, apperrors.NewSchemaViolationError(fmt.Sprintf("intent %d: %v", i, err), err)
		}
		if !ins.ReadOnly {
			h.logger.Warn("generated sql is not a read", map[string]interface{}{
				"intent": i,
				"kind":   ins.Kind,
			})
			return nil, apperrors.NewStatementNotAllowedError(
				fmt.Sprintf("intent %d: %s statement", i, ins.Kind), sqlmeta.ErrNotReadOnly)
		}

		for _, t := range ins.Tables {
			if seen[t] {
				continue
			}
			seen[t] = true
			tables = append(tables, t)
			if !h.config.AllowedTables[t] {
				disallowed = append(disallowed, t)
			}
		}
	}

	if len(disallowed) > 0 {
		sort.Strings(disallowed)
		h.logger.Warn("generated sql references disallowed tables", map[string]interface{}{
			"tables": disallowed,
		})
		return nil, apperrors.NewSchemaViolationError("tables: "+strings.Join(disallowed, ", "), nil)
	}

	return &Output{Tables: tables}, nil
}
