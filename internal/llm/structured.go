package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	apperrors "product-analytics/internal/common/errors"
	"product-analytics/internal/common/validation"
	"product-analytics/pkg/registry"
)

// Runner executes agents and turns their output into typed values. Model
// output is treated as untrusted: it is validated against the agent's
// declared schema and decoded strictly before the caller sees it.
type Runner struct {
	completer Completer

	mu      sync.Mutex
	schemas map[string]*validation.Schema
}

func NewRunner(completer Completer) *Runner {
	return &Runner{
		completer: completer,
		schemas:   make(map[string]*validation.Schema),
	}
}

// Run completes agent on input and decodes the result into out.
func (r *Runner) Run(ctx context.Context, agent registry.Agent, input string, out interface{}) error {
	raw, err := r.completer.Complete(ctx, agent, input)
	if err != nil {
		if _, ok := apperrors.AsStandardError(err); ok {
			return err
		}
		return apperrors.NewLLMRequestFailedError(agent.Name, err)
	}

	return r.Decode(agent, []byte(raw), out)
}

// Decode validates raw against the agent's schema and decodes it into out,
// rejecting unknown fields.
func (r *Runner) Decode(agent registry.Agent, raw []byte, out interface{}) error {
	schema, err := r.schema(agent)
	if err != nil {
		return apperrors.NewLLMOutputInvalidError(agent.Name, err.Error(), err)
	}

	if result := schema.ValidateDocument(raw); !result.Valid {
		return apperrors.NewLLMOutputInvalidError(agent.Name, result.Error(), nil)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return apperrors.NewLLMOutputInvalidError(agent.Name, fmt.Sprintf("decode: %v", err), err)
	}
	return nil
}

func (r *Runner) schema(agent registry.Agent) (*validation.Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := agent.ID + "/" + agent.OutputName
	if s, ok := r.schemas[key]; ok {
		return s, nil
	}
	s, err := validation.Compile(agent.OutputSchema)
	if err != nil {
		return nil, err
	}
	r.schemas[key] = s
	return s, nil
}
