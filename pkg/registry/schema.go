package registry

// AgentRegistry lists the prompt-driven agents the pipeline calls.
type AgentRegistry struct {
	Version string  `yaml:"version" json:"version"`
	Agents  []Agent `yaml:"agents" json:"agents"`
}

// Agent is one structured-output completion: instructions, model settings
// and the JSON schema the model must answer with.
type Agent struct {
	ID           string                 `yaml:"id" json:"id"`
	Name         string                 `yaml:"name" json:"name"`
	Model        string                 `yaml:"model" json:"model"`
	Instructions string                 `yaml:"instructions" json:"instructions"`
	Temperature  *float64               `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	TopP         *float64               `yaml:"top_p,omitempty" json:"top_p,omitempty"`
	OutputName   string                 `yaml:"output_name" json:"output_name"`
	OutputSchema map[string]interface{} `yaml:"output_schema" json:"output_schema"`
}

// Agent IDs referenced by the pipeline stages.
const (
	AgentProductCheck      = "product-check"
	AgentSchemaMapper      = "schema-mapper"
	AgentCustomerSegmenter = "customer-segmenter"
)
