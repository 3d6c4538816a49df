package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"product-analytics/internal/common/config"
	apperrors "product-analytics/internal/common/errors"
	httpclient "product-analytics/internal/common/http"
	"product-analytics/internal/common/logger"
	"product-analytics/internal/common/metrics"
	"product-analytics/pkg/registry"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Completer runs one agent against free text and returns the raw model
// output, which must be a JSON document matching agent.OutputSchema.
type Completer interface {
	Complete(ctx context.Context, agent registry.Agent, input string) (string, error)
}

// Client is the OpenAI chat completions Completer.
type Client struct {
	client openai.Client
	logger logger.Logger
}

func NewClient(cfg config.LLMConfig, log logger.Logger) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpclient.NewClient(config.GetDuration(cfg.Timeout))),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client: openai.NewClient(opts...),
		logger: log.With(map[string]interface{}{"component": "llm"}),
	}
}

// Complete sends the agent instructions and input with a strict JSON schema
// response format and returns the message content.
func (c *Client) Complete(ctx context.Context, agent registry.Agent, input string) (string, error) {
	start := time.Now()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(agent.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(agent.Instructions),
			openai.UserMessage(input),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        agent.OutputName,
					Description: openai.String(agent.Name),
					Schema:      agent.OutputSchema,
					Strict:      openai.Bool(true),
				},
			},
		},
	}
	if agent.Temperature != nil {
		params.Temperature = openai.Float(*agent.Temperature)
	}
	if agent.TopP != nil {
		params.TopP = openai.Float(*agent.TopP)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		metrics.LLMCalls.WithLabelValues(agent.ID, "error").Inc()
		fields := map[string]interface{}{
			"agent":    agent.Name,
			"model":    agent.Model,
			"duration": time.Since(start).Milliseconds(),
			"error":    err.Error(),
		}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			fields["statusCode"] = apiErr.StatusCode
		}
		c.logger.Error("Chat completion failed", fields)

		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperrors.NewLLMTimeoutError(agent.Name, err)
		}
		return "", apperrors.NewLLMRequestFailedError(agent.Name, err)
	}

	if len(resp.Choices) == 0 {
		metrics.LLMCalls.WithLabelValues(agent.ID, "invalid").Inc()
		return "", apperrors.NewLLMOutputInvalidError(agent.Name, "no choices returned", nil)
	}

	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		metrics.LLMCalls.WithLabelValues(agent.ID, "refused").Inc()
		return "", apperrors.NewLLMOutputInvalidError(agent.Name, fmt.Sprintf("refusal: %s", msg.Refusal), nil)
	}

	metrics.LLMCalls.WithLabelValues(agent.ID, "success").Inc()
	c.logger.Debug("Chat completion succeeded", map[string]interface{}{
		"agent":            agent.Name,
		"model":            agent.Model,
		"duration":         time.Since(start).Milliseconds(),
		"promptTokens":     resp.Usage.PromptTokens,
		"completionTokens": resp.Usage.CompletionTokens,
	})

	return msg.Content, nil
}
