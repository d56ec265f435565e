// Package schema validates workflow and template documents before they are
// loaded onto the canvas.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed workflow.schema.json
var workflowSchema string

const workflowSchemaURL = "https://circuitflow.local/schemas/workflow.schema.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func workflow() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled, compileErr = jsonschema.CompileString(workflowSchemaURL, workflowSchema)
	})
	return compiled, compileErr
}

// ValidateWorkflow checks a JSON-encoded workflow or template document.
func ValidateWorkflow(raw []byte) error {
	s, err := workflow()
	if err != nil {
		return fmt.Errorf("compile workflow schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("invalid workflow: %w", err)
	}
	return nil
}

// ValidateValue marshals v to JSON and validates it.
func ValidateValue(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return ValidateWorkflow(raw)
}
