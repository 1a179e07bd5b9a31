package storage

import (
	"bytes"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/osier-labs/weave/internal/domain"
)

// ParseDefinition decodes a workflow definition from JSON or YAML. The
// format is sniffed from the first non-space byte so authors can use
// either without declaring it.
func ParseDefinition(data []byte) (*domain.WorkflowDefinition, error) {
	var def domain.WorkflowDefinition

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("parse definition json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("parse definition yaml: %w", err)
		}
	}

	if def.ID == "" {
		return nil, fmt.Errorf("definition has no id: %w", domain.ErrInvalidConfig)
	}
	return &def, nil
}

// LoadDefinitionFile reads and parses a definition from disk.
func LoadDefinitionFile(path string) (*domain.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition %q: %w", path, err)
	}
	return ParseDefinition(data)
}
