package fetchproducts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"product-analytics/internal/common/database"
	apperrors "product-analytics/internal/common/errors"
	"product-analytics/internal/common/logger"
	"product-analytics/internal/common/metrics"
	"product-analytics/internal/common/sqlmeta"
	"product-analytics/internal/models"
)

const (
	TaskType = "fetch-products"
)

var (
	ErrInputRequired      = errors.New("INPUT_REQUIRED")
	ErrUnexpectedColumns  = errors.New("UNEXPECTED_COLUMN_COUNT")
	ErrQueryExecutionFail = errors.New("QUERY_EXECUTION_FAILED")
)

// Handler runs already guarded SQL and maps rows to products by position:
// identifier, name, image URL.
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

	responses := make([]models.DatabaseResponse, 0, len(input.Intents))
	rowCount := 0

	err = h.db.WithConn(ctx, func(conn *sql.Conn) error {
		for i, intent := range input.Intents {
			resp := annotate(intent)
			if strings.TrimSpace(intent.RawSQL) != "" {
				products, err := h.query(ctx, conn, intent.RawSQL)
				if err != nil {
					return fmt.Errorf("intent %d: %w", i, err)
				}
				resp.Results = products
				rowCount += len(products)
			}
			responses = append(responses, resp)
		}
		return nil
	})
	if err != nil {
		h.logger.Error("product fetch failed", map[string]interface{}{
			"error": err,
		})
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.NewQueryTimeoutError(TaskType, err)
		}
		return nil, apperrors.NewDatabaseQueryFailedError(TaskType, err)
	}

	metrics.ProductsFetched.Observe(float64(rowCount))
	h.logger.Debug("products fetched", map[string]interface{}{
		"intentCount": len(responses),
		"rowCount":    rowCount,
	})

	return &Output{Responses: responses, RowCount: rowCount}, nil
}

func (h *Handler) query(ctx context.Context, conn *sql.Conn, query string) ([]models.Product, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFail, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFail, err)
	}
	if len(cols) != len(expectedColumns) {
		return nil, fmt.Errorf("%w: got %d columns %v", ErrUnexpectedColumns, len(cols), cols)
	}
	h.checkColumnNames(cols)

	products := []models.Product{}
	for rows.Next() {
		var (
			p     models.Product
			name  sql.NullString
			image sql.NullString
		)
		if err := rows.Scan(&p.ProductID, &name, &image); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrQueryExecutionFail, err)
		}
		p.ProductName = name.String
		p.ImageURL = image.String
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFail, err)
	}
	return products, nil
}

// checkColumnNames warns when the row shape is right but the names are not,
// since positional mapping would then silently mislabel fields.
func (h *Handler) checkColumnNames(cols []string) {
	for i, c := range cols {
		name := strings.ToLower(c)
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			name = name[idx+1:]
		}
		if name != expectedColumns[i] {
			h.logger.Warn("result columns differ from expected order", map[string]interface{}{
				"columns":  cols,
				"expected": expectedColumns,
			})
			return
		}
	}
}

func annotate(intent models.QueryIntent) models.DatabaseResponse {
	resp := models.DatabaseResponse{
		InfoToRetrieve: intent.InfoToRetrieve,
		Tables:         []string{},
		Columns:        []string{},
		Results:        []models.Product{},
	}
	if strings.TrimSpace(intent.RawSQL) == "" {
		return resp
	}
	if ins, err := sqlmeta.Inspect(intent.RawSQL); err == nil {
		resp.Tables = ins.Tables
		resp.Columns = ins.Columns
	}
	return resp
}
