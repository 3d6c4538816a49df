package resolvetopseller

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"product-analytics/internal/common/database"
	apperrors "product-analytics/internal/common/errors"
	"product-analytics/internal/common/logger"
	"product-analytics/internal/common/metrics"
	"product-analytics/internal/models"
	"product-analytics/internal/workers/analytics/queries"
)

const (
	TaskType = "resolve-top-seller"
)

var (
	ErrNoCandidates = errors.New("NO_CANDIDATES")
)

// Handler picks the candidate with the highest summed transaction price.
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
	if input == nil || len(input.Candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if len(input.Candidates) == 1 {
		return &Output{Product: input.Candidates[0], Skipped: true}, nil
	}

	start := time.Now()
	defer func() { metrics.ObserveStage(TaskType, start, err) }()

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	ids := make([]int64, len(input.Candidates))
	for i, c := range input.Candidates {
		ids[i] = c.ProductID
	}

	query, args, err := queries.Build(models.QueryTypeTopSeller, h.db.Dialect, queries.Params{ProductIDs: ids})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	var (
		topID int64
		total float64
		found = true
	)
	err = h.db.WithConn(ctx, func(conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, query, args...).Scan(&topID, &total)
		if errors.Is(err, sql.ErrNoRows) {
			found = false
			return nil
		}
		return err
	})
	if err != nil {
		h.logger.Error("top seller query failed", map[string]interface{}{
			"error":          err,
			"candidateCount": len(ids),
		})
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.NewQueryTimeoutError(TaskType, err)
		}
		return nil, apperrors.NewDatabaseQueryFailedError(TaskType, err)
	}

	if found {
		for _, c := range input.Candidates {
			if c.ProductID == topID {
				return &Output{Product: c, TotalSales: total}, nil
			}
		}
	}

	h.logger.Warn("no sales for candidates, using first", map[string]interface{}{
		"candidateCount": len(ids),
	})
	return &Output{Product: input.Candidates[0]}, nil
}
