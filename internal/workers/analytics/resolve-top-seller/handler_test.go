package resolvetopseller

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-analytics/internal/common/database"
	apperrors "product-analytics/internal/common/errors"
	"product-analytics/internal/common/logger"
	"product-analytics/internal/models"
)

var topSellerPattern = regexp.QuoteMeta("SELECT article_id, SUM(price) AS total_sales")

func candidates() []models.Product {
	return []models.Product{
		{ProductID: 101, ProductName: "Red Midi Dress", ImageURL: "https://img/101.jpg"},
		{ProductID: 102, ProductName: "Red Wrap Dress", ImageURL: "https://img/102.jpg"},
		{ProductID: 103, ProductName: "Red Slip Dress", ImageURL: "https://img/103.jpg"},
	}
}

func newMockHandler(t *testing.T, dialect database.Dialect) (*Handler, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewHandler(&Config{Timeout: 5 * time.Second}, database.NewSQLFromDB(db, dialect), logger.NewTestLogger(t)), mock, db
}

func TestHandler_Execute_SingleCandidateSkipsDatabase(t *testing.T) {
	h, mock, _ := newMockHandler(t, database.DialectPostgres)
	only := candidates()[:1]

	output, err := h.Execute(context.Background(), &Input{Candidates: only})

	require.NoError(t, err)
	assert.True(t, output.Skipped)
	assert.Equal(t, only[0], output.Product)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_PicksHighestAggregate(t *testing.T) {
	tests := []struct {
		name    string
		dialect database.Dialect
	}{
		{"postgres", database.DialectPostgres},
		{"mysql", database.DialectMySQL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock, db := newMockHandler(t, tt.dialect)
			mock.ExpectQuery(topSellerPattern).
				WithArgs(int64(101), int64(102), int64(103)).
				WillReturnRows(sqlmock.NewRows([]string{"article_id", "total_sales"}).AddRow(int64(102), 12.5))

			output, err := h.Execute(context.Background(), &Input{Candidates: candidates()})

			require.NoError(t, err)
			assert.False(t, output.Skipped)
			assert.Equal(t, "Red Wrap Dress", output.Product.ProductName)
			assert.Equal(t, 12.5, output.TotalSales)
			assert.NoError(t, mock.ExpectationsWereMet())
			assert.Equal(t, 0, db.Stats().InUse)
		})
	}
}

func TestHandler_Execute_NoSalesFallsBackToFirst(t *testing.T) {
	h, mock, _ := newMockHandler(t, database.DialectPostgres)
	mock.ExpectQuery(topSellerPattern).
		WillReturnRows(sqlmock.NewRows([]string{"article_id", "total_sales"}))

	output, err := h.Execute(context.Background(), &Input{Candidates: candidates()})

	require.NoError(t, err)
	assert.Equal(t, int64(101), output.Product.ProductID)
}

func TestHandler_Execute_DatabaseFailure(t *testing.T) {
	h, mock, _ := newMockHandler(t, database.DialectPostgres)
	mock.ExpectQuery(topSellerPattern).WillReturnError(errors.New("connection refused"))

	_, err := h.Execute(context.Background(), &Input{Candidates: candidates()})

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDatabaseQueryFailed))
}

func TestHandler_Execute_NoCandidates(t *testing.T) {
	h, _, _ := newMockHandler(t, database.DialectPostgres)

	_, err := h.Execute(context.Background(), &Input{})
	assert.ErrorIs(t, err, ErrNoCandidates)
}
