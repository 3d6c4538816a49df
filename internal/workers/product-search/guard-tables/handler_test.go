package guardtables

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "product-analytics/internal/common/errors"
	"product-analytics/internal/common/logger"
	"product-analytics/internal/models"
)

func createTestHandler(t *testing.T) *Handler {
	return NewHandler(NewConfig([]string{"articles", "customers", "transactions"}), logger.NewTestLogger(t))
}

func intents(sqls ...string) *Input {
	in := &Input{}
	for _, s := range sqls {
		in.Intents = append(in.Intents, models.QueryIntent{InfoToRetrieve: "products", RawSQL: s})
	}
	return in
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name       string
		input      *Input
		wantTables []string
		wantCode   apperrors.ErrorCode
	}{
		{
			name:       "single allowed table",
			input:      intents("SELECT article_id, prod_name, image_url FROM articles WHERE prod_name LIKE '%red%'"),
			wantTables: []string{"articles"},
		},
		{
			name: "join with aliases",
			input: intents("SELECT a.article_id, a.prod_name, a.image_url FROM articles a " +
				"JOIN transactions t ON t.article_id = a.article_id WHERE t.price > 0.05"),
			wantTables: []string{"articles", "transactions"},
		},
		{
			name:       "upper case table name",
			input:      intents("SELECT article_id, prod_name, image_url FROM ARTICLES"),
			wantTables: []string{"articles"},
		},
		{
			name:       "blank sql is skipped",
			input:      intents("", "SELECT article_id, prod_name, image_url FROM articles"),
			wantTables: []string{"articles"},
		},
		{
			name:     "hallucinated table",
			input:    intents("SELECT article_id, prod_name, image_url FROM articles", "SELECT * FROM reviews WHERE rating > 4"),
			wantCode: apperrors.ErrCodeSchemaViolation,
		},
		{
			name:     "disallowed table in subquery",
			input:    intents("SELECT article_id, prod_name, image_url FROM articles WHERE article_id IN (SELECT article_id FROM users)"),
			wantCode: apperrors.ErrCodeSchemaViolation,
		},
		{
			name:     "schema-qualified allowed name",
			input:    intents("SELECT article_id, prod_name, image_url FROM otherdb.articles"),
			wantCode: apperrors.ErrCodeSchemaViolation,
		},
		{
			name:     "aliased schema-qualified table",
			input:    intents("SELECT a.customer_id FROM secret_schema.customers a"),
			wantCode: apperrors.ErrCodeSchemaViolation,
		},
		{
			name:     "unparseable sql",
			input:    intents("SELECT FROM WHERE"),
			wantCode: apperrors.ErrCodeSchemaViolation,
		},
		{
			name:     "delete statement",
			input:    intents("DELETE FROM articles"),
			wantCode: apperrors.ErrCodeStatementNotAllowed,
		},
		{
			name:     "drop statement",
			input:    intents("DROP TABLE customers"),
			wantCode: apperrors.ErrCodeStatementNotAllowed,
		},
		{
			name:     "locking read",
			input:    intents("SELECT article_id FROM articles FOR UPDATE"),
			wantCode: apperrors.ErrCodeStatementNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := createTestHandler(t).Execute(context.Background(), tt.input)

			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, apperrors.HasCode(err, tt.wantCode), "got %v", err)
				assert.Nil(t, output)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTables, output.Tables)
		})
	}
}

func TestHandler_Execute_ReportsEveryDisallowedTable(t *testing.T) {
	_, err := createTestHandler(t).Execute(context.Background(),
		intents("SELECT r.id FROM reviews r JOIN users u ON u.id = r.user_id"))

	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, "tables: reviews, users", stdErr.Details)
}

func TestHandler_Execute_QualifiedTableNamedInDetails(t *testing.T) {
	_, err := createTestHandler(t).Execute(context.Background(),
		intents("SELECT a.article_id FROM articles a JOIN otherdb.transactions t ON t.article_id = a.article_id"))

	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeSchemaViolation, stdErr.Code)
	assert.Equal(t, "tables: otherdb.transactions", stdErr.Details)
}

func TestHandler_Execute_NilInput(t *testing.T) {
	_, err := createTestHandler(t).Execute(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInputRequired)
}
