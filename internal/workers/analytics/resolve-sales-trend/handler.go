package resolvesalestrend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"product-analytics/internal/common/database"
	apperrors "product-analytics/internal/common/errors"
	"product-analytics/internal/common/logger"
	"product-analytics/internal/common/metrics"
	"product-analytics/internal/models"
	"product-analytics/internal/workers/analytics/queries"
)

const (
	TaskType = "resolve-sales-trend"
)

var (
	ErrInputRequired    = errors.New("INPUT_REQUIRED")
	ErrSeriesLength     = errors.New("UNEXPECTED_SERIES_LENGTH")
	ErrSeriesOutOfOrder = errors.New("SERIES_OUT_OF_ORDER")
)

// Handler computes cumulative monthly sales for one product over the
// configured window. Months without transactions add nothing.
type Handler struct {
	config *Config
	db     *database.SQLClient
	logger logger.Logger
}

func NewHandler(config *Config, db *database.SQLClient, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
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

	params := queries.Params{ProductID: input.ProductID, Start: h.config.Start, End: h.config.End}
	query, args, err := queries.Build(models.QueryTypeSalesTrend, h.db.Dialect, params)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	out := &Output{}
	err = h.db.WithConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				month      string
				cumulative sql.NullFloat64
			)
			if err := rows.Scan(&month, &cumulative); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			if n := len(out.Months); n > 0 && month <= out.Months[n-1] {
				return fmt.Errorf("%w: %s after %s", ErrSeriesOutOfOrder, month, out.Months[n-1])
			}
			out.Months = append(out.Months, month)
			out.Series = append(out.Series, cumulative.Float64)
		}
		return rows.Err()
	})
	if err == nil {
		if want := queries.MonthCount(params); len(out.Series) != want {
			err = fmt.Errorf("%w: got %d points, want %d", ErrSeriesLength, len(out.Series), want)
		}
	}
	if err != nil {
		h.logger.Error("sales trend query failed", map[string]interface{}{
			"error":     err,
			"productId": input.ProductID,
		})
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.NewQueryTimeoutError(TaskType, err)
		}
		return nil, apperrors.NewDatabaseQueryFailedError(TaskType, err)
	}

	h.logger.Debug("sales trend resolved", map[string]interface{}{
		"productId": input.ProductID,
		"points":    len(out.Series),
		"total":     out.Total(),
	})
	return out, nil
}
