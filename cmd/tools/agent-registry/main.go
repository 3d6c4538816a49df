// cmd/tools/agent-registry/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"product-analytics/pkg/registry"
)

var registryPath string

func main() {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	showCmd := flag.NewFlagSet("show", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{listCmd, showCmd, validateCmd, updateCmd} {
		fs.StringVar(&registryPath, "path", "", "Path to registry file (empty uses the embedded registry)")
	}

	idShow := showCmd.String("id", "", "Agent ID (e.g., schema-mapper)")

	idUpdate := updateCmd.String("id", "", "Agent ID to update")
	field := updateCmd.String("field", "", "Field to update (model, name, temperature, top_p)")
	value := updateCmd.String("value", "", "New value for the field")

	exportPath := exportCmd.String("out", "configs/agents.yaml", "Where to write the embedded registry")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list":
		_ = listCmd.Parse(os.Args[2:])
		reg := mustLoad()
		fmt.Printf("Registry version %s, %d agents\n", reg.Version, len(reg.Agents))
		for _, a := range reg.Agents {
			fmt.Printf("  %-20s %-12s %s\n", a.ID, a.Model, a.OutputName)
		}

	case "show":
		_ = showCmd.Parse(os.Args[2:])
		if *idShow == "" {
			fmt.Println("Error: id is required for show.")
			showCmd.Usage()
			os.Exit(1)
		}
		agent, ok := mustLoad().Lookup(*idShow)
		if !ok {
			fmt.Printf("Agent %s not found\n", *idShow)
			os.Exit(1)
		}
		data, _ := json.MarshalIndent(agent, "", "  ")
		fmt.Println(string(data))

	case "validate":
		_ = validateCmd.Parse(os.Args[2:])
		if err := validateRegistry(); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Registry validation passed.")

	case "update":
		_ = updateCmd.Parse(os.Args[2:])
		if registryPath == "" || *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: path, id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateAgent(*idUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating agent: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated agent %s, field %s to %s\n", *idUpdate, *field, *value)

	case "export":
		_ = exportCmd.Parse(os.Args[2:])
		if err := saveRegistry(registry.Default(), *exportPath); err != nil {
			fmt.Printf("Error exporting registry: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote embedded registry to %s\n", *exportPath)

	case "help":
		fallthrough
	default:
		help()
	}
}

func mustLoad() *registry.AgentRegistry {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		fmt.Printf("Failed to load registry: %v\n", err)
		os.Exit(1)
	}
	return reg
}

func validateRegistry() error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if len(reg.Agents) == 0 {
		return fmt.Errorf("registry contains no agents")
	}

	errs := reg.Validate()
	if err := reg.Require(registry.AgentProductCheck, registry.AgentSchemaMapper, registry.AgentCustomerSegmenter); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("%d problems:\n  %s", len(errs), strings.Join(msgs, "\n  "))
	}

	fmt.Printf("Found %d agents.\n", len(reg.Agents))
	return nil
}

func updateAgent(id, field, value string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	found := false
	for i := range reg.Agents {
		if reg.Agents[i].ID != id {
			continue
		}
		found = true
		switch field {
		case "model":
			reg.Agents[i].Model = value
		case "name":
			reg.Agents[i].Name = value
		case "temperature", "top_p":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", field, err)
			}
			if field == "temperature" {
				reg.Agents[i].Temperature = &f
			} else {
				reg.Agents[i].TopP = &f
			}
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		break
	}

	if !found {
		return fmt.Errorf("agent with ID %s not found", id)
	}
	if errs := reg.Validate(); len(errs) > 0 {
		return fmt.Errorf("update leaves registry invalid: %v", errs[0])
	}
	return saveRegistry(reg, registryPath)
}

// saveRegistry handles saving the registry to file
func saveRegistry(reg *registry.AgentRegistry, path string) error {
	data, err := yaml.Marshal(reg)
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help() {
	fmt.Print(`
Usage: agent-registry <command> [flags]

Commands:
  list      List the agents in the registry
  show      Print one agent as JSON
  validate  Validate the registry file
  update    Update an agent field in a registry file
  export    Write the embedded registry to a file for editing
  help      Show this help message

Examples:
  agent-registry validate
  agent-registry show -id schema-mapper
  agent-registry export -out configs/agents.yaml
  agent-registry update -path configs/agents.yaml -id schema-mapper -field temperature -value 0.1

Use 'agent-registry <command> -h' for more information about a command.
` + "\n")
}
