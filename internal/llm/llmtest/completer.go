// Package llmtest provides a scripted Completer for stage and pipeline tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"product-analytics/pkg/registry"
)

// Completer answers by agent ID. An agent with a Gate waits for the gate to
// close or for ctx to be done before answering.
type Completer struct {
	Responses map[string]string
	Errors    map[string]error
	Gates     map[string]<-chan struct{}

	mu     sync.Mutex
	inputs map[string][]string
}

func NewCompleter() *Completer {
	return &Completer{
		Responses: make(map[string]string),
		Errors:    make(map[string]error),
		Gates:     make(map[string]<-chan struct{}),
		inputs:    make(map[string][]string),
	}
}

// Respond sets the raw output for an agent and returns the completer.
func (c *Completer) Respond(agentID, output string) *Completer {
	c.Responses[agentID] = output
	return c
}

// Fail makes every call to an agent return err.
func (c *Completer) Fail(agentID string, err error) *Completer {
	c.Errors[agentID] = err
	return c
}

func (c *Completer) Complete(ctx context.Context, agent registry.Agent, input string) (string, error) {
	c.mu.Lock()
	c.inputs[agent.ID] = append(c.inputs[agent.ID], input)
	gate := c.Gates[agent.ID]
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if err, ok := c.Errors[agent.ID]; ok {
		return "", err
	}
	out, ok := c.Responses[agent.ID]
	if !ok {
		return "", fmt.Errorf("no scripted response for agent %s", agent.ID)
	}
	return out, nil
}

// Calls returns how many times an agent was invoked.
func (c *Completer) Calls(agentID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inputs[agentID])
}

// Inputs returns the inputs an agent received, in call order.
func (c *Completer) Inputs(agentID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.inputs[agentID]...)
}
