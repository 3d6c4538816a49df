package registry

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"product-analytics/internal/common/validation"

	"gopkg.in/yaml.v3"
)

//go:embed agents.yaml
var embeddedAgents []byte

var outputNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// LoadRegistry reads a registry file; an empty path returns the embedded one.
func LoadRegistry(path string) (*AgentRegistry, error) {
	if path == "" {
		return Parse(embeddedAgents)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the embedded registry.
func Default() *AgentRegistry {
	reg, err := Parse(embeddedAgents)
	if err != nil {
		panic(fmt.Sprintf("embedded agent registry: %v", err))
	}
	return reg
}

func Parse(data []byte) (*AgentRegistry, error) {
	var reg AgentRegistry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return &reg, nil
}

// Lookup returns the agent with the given ID.
func (r *AgentRegistry) Lookup(id string) (Agent, bool) {
	for _, a := range r.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return Agent{}, false
}

// Validate checks every agent is callable: unique ID, model, instructions,
// a legal output name and an object-rooted output schema that compiles.
func (r *AgentRegistry) Validate() []error {
	var errs []error
	seen := map[string]bool{}

	for i, a := range r.Agents {
		label := a.ID
		if label == "" {
			label = fmt.Sprintf("agents[%d]", i)
		}
		if a.ID == "" {
			errs = append(errs, fmt.Errorf("%s: missing id", label))
		} else if seen[a.ID] {
			errs = append(errs, fmt.Errorf("%s: duplicate id", label))
		}
		seen[a.ID] = true

		if a.Model == "" {
			errs = append(errs, fmt.Errorf("%s: missing model", label))
		}
		if a.Instructions == "" {
			errs = append(errs, fmt.Errorf("%s: missing instructions", label))
		}
		if !outputNamePattern.MatchString(a.OutputName) {
			errs = append(errs, fmt.Errorf("%s: output_name %q must match %s", label, a.OutputName, outputNamePattern))
		}
		if a.Temperature != nil && (*a.Temperature < 0 || *a.Temperature > 2) {
			errs = append(errs, fmt.Errorf("%s: temperature must be within [0, 2]", label))
		}
		if a.TopP != nil && (*a.TopP < 0 || *a.TopP > 1) {
			errs = append(errs, fmt.Errorf("%s: top_p must be within [0, 1]", label))
		}
		if a.OutputSchema == nil {
			errs = append(errs, fmt.Errorf("%s: missing output_schema", label))
			continue
		}
		if t, _ := a.OutputSchema["type"].(string); t != "object" {
			errs = append(errs, fmt.Errorf("%s: output_schema root must be an object", label))
		}
		if _, err := validation.Compile(a.OutputSchema); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
		}
	}

	return errs
}

// Require returns an error naming every missing agent ID.
func (r *AgentRegistry) Require(ids ...string) error {
	var missing []string
	for _, id := range ids {
		if _, ok := r.Lookup(id); !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("registry missing agents: %v", missing)
	}
	return nil
}
