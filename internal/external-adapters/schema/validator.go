// Package schema validates bundle descriptors against the embedded JSON Schema.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed manifest_schema.json
var manifestSchema string

// Validator checks raw descriptor YAML against the descriptor schema before
// any entity conversion happens, so diagnostics name the offending field.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the embedded descriptor schema
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("manifest_schema.json", strings.NewReader(manifestSchema)); err != nil {
		return nil, fmt.Errorf("failed to load descriptor schema: %w", err)
	}
	compiled, err := compiler.Compile("manifest_schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile descriptor schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// Validate checks descriptor YAML bytes against the schema
func (v *Validator) Validate(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Normalize YAML-decoded values to JSON-decoded shapes, which is what
	// the schema library expects.
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("descriptor is not JSON-representable: %w", err)
	}
	var normalized interface{}
	if err := json.Unmarshal(jsonBytes, &normalized); err != nil {
		return fmt.Errorf("failed to normalize descriptor: %w", err)
	}

	if err := v.schema.Validate(normalized); err != nil {
		var ve *jsonschema.ValidationError
		if ok := asValidationError(err, &ve); ok {
			return fmt.Errorf("descriptor validation failed:\n%s", formatValidationError(ve))
		}
		return fmt.Errorf("descriptor validation failed: %w", err)
	}
	return nil
}

func asValidationError(err error, target **jsonschema.ValidationError) bool {
	ve, ok := err.(*jsonschema.ValidationError)
	if ok {
		*target = ve
	}
	return ok
}

// formatValidationError flattens nested causes into one line per failure
func formatValidationError(ve *jsonschema.ValidationError) string {
	var lines []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "(root)"
			}
			lines = append(lines, fmt.Sprintf("  - %s: %s", loc, e.Message))
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	return strings.Join(lines, "\n")
}
