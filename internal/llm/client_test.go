package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"product-analytics/internal/common/config"
	apperrors "product-analytics/internal/common/errors"
	"product-analytics/internal/common/logger"
	"product-analytics/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatCompletionBody renders a minimal chat.completion response.
func chatCompletionBody(content string) string {
	c, _ := json.Marshal(content)
	return fmt.Sprintf(`{
		"id": "chatcmpl-test",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "gpt-4.1-mini",
		"choices": [{
			"index": 0,
			"finish_reason": "stop",
			"logprobs": null,
			"message": {"role": "assistant", "content": %s, "refusal": null}
		}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`, c)
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	return NewClient(config.LLMConfig{
		BaseURL:    serverURL + "/",
		APIKey:     "sk-test",
		Timeout:    2000,
		MaxRetries: 0,
	}, logger.NewTestLogger(t))
}

func TestClientComplete_SendsAgentSettings(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionBody(`{"queries":[]}`)))
	}))
	defer server.Close()

	agent, _ := registry.Default().Lookup(registry.AgentSchemaMapper)
	out, err := newTestClient(t, server.URL).Complete(context.Background(), agent, "red dress")

	require.NoError(t, err)
	assert.Equal(t, `{"queries":[]}`, out)

	assert.Equal(t, agent.Model, captured["model"])
	assert.Equal(t, 0.2, captured["temperature"])
	assert.Equal(t, 0.2, captured["top_p"])

	messages := captured["messages"].([]interface{})
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
	assert.Equal(t, "red dress", messages[1].(map[string]interface{})["content"])

	format := captured["response_format"].(map[string]interface{})
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]interface{})
	assert.Equal(t, "sql_queries", schema["name"])
	assert.Equal(t, true, schema["strict"])
}

func TestClientComplete_OmitsUnsetSampling(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionBody(`{"segments":[]}`)))
	}))
	defer server.Close()

	agent, _ := registry.Default().Lookup(registry.AgentCustomerSegmenter)
	_, err := newTestClient(t, server.URL).Complete(context.Background(), agent, "red dress")

	require.NoError(t, err)
	_, hasTemp := captured["temperature"]
	_, hasTopP := captured["top_p"]
	assert.False(t, hasTemp)
	assert.False(t, hasTopP)
}

func TestClientComplete_Errors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		timeout  time.Duration
		wantCode apperrors.ErrorCode
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":{"message":"upstream","type":"server_error"}}`))
			},
			wantCode: apperrors.ErrCodeLLMRequestFailed,
		},
		{
			name: "refusal",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m",
					"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"","refusal":"I can't help with that"}}]}`))
			},
			wantCode: apperrors.ErrCodeLLMOutputInvalid,
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
			},
			wantCode: apperrors.ErrCodeLLMOutputInvalid,
		},
		{
			name: "deadline",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			timeout:  50 * time.Millisecond,
			wantCode: apperrors.ErrCodeLLMTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			ctx := context.Background()
			if tt.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.timeout)
				defer cancel()
			}

			agent, _ := registry.Default().Lookup(registry.AgentProductCheck)
			_, err := newTestClient(t, server.URL).Complete(ctx, agent, "hello")

			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}
