package llm

import (
	"context"
	"errors"
	"testing"

	apperrors "product-analytics/internal/common/errors"
	"product-analytics/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	output string
	err    error
	calls  int
}

func (s *stubCompleter) Complete(ctx context.Context, agent registry.Agent, input string) (string, error) {
	s.calls++
	return s.output, s.err
}

type verdict struct {
	IsProductQuery bool   `json:"is_product_query"`
	Reasoning      string `json:"reasoning"`
}

func TestRunnerRun(t *testing.T) {
	agent, ok := registry.Default().Lookup(registry.AgentProductCheck)
	require.True(t, ok)

	tests := []struct {
		name     string
		output   string
		err      error
		want     verdict
		wantCode apperrors.ErrorCode
	}{
		{
			name:   "valid output",
			output: `{"is_product_query": true, "reasoning": "asks about a dress"}`,
			want:   verdict{IsProductQuery: true, Reasoning: "asks about a dress"},
		},
		{
			name:     "missing field",
			output:   `{"is_product_query": true}`,
			wantCode: apperrors.ErrCodeLLMOutputInvalid,
		},
		{
			name:     "extra field",
			output:   `{"is_product_query": true, "reasoning": "x", "confidence": 0.9}`,
			wantCode: apperrors.ErrCodeLLMOutputInvalid,
		},
		{
			name:     "wrong type",
			output:   `{"is_product_query": "yes", "reasoning": "x"}`,
			wantCode: apperrors.ErrCodeLLMOutputInvalid,
		},
		{
			name:     "prose",
			output:   `Yes, this is a product.`,
			wantCode: apperrors.ErrCodeLLMOutputInvalid,
		},
		{
			name:     "plain transport error",
			err:      errors.New("connection reset"),
			wantCode: apperrors.ErrCodeLLMRequestFailed,
		},
		{
			name:     "standard error passes through",
			err:      apperrors.NewLLMTimeoutError("Product check", context.DeadlineExceeded),
			wantCode: apperrors.ErrCodeLLMTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := NewRunner(&stubCompleter{output: tt.output, err: tt.err})

			var got verdict
			err := runner.Run(context.Background(), agent, "red dress", &got)

			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, apperrors.HasCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunner_CachesCompiledSchemas(t *testing.T) {
	agent, _ := registry.Default().Lookup(registry.AgentProductCheck)
	runner := NewRunner(&stubCompleter{output: `{"is_product_query": false, "reasoning": "weather"}`})

	for i := 0; i < 3; i++ {
		var v verdict
		require.NoError(t, runner.Run(context.Background(), agent, "weather", &v))
	}
	assert.Len(t, runner.schemas, 1)
}

func TestRunner_InvalidAgentSchema(t *testing.T) {
	agent := registry.Agent{ID: "broken", Name: "Broken", OutputName: "x", OutputSchema: map[string]interface{}{"type": 5}}
	runner := NewRunner(&stubCompleter{output: `{}`})

	var v verdict
	err := runner.Run(context.Background(), agent, "x", &v)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLLMOutputInvalid))
}
