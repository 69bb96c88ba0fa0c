package inference

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is a compiled JSON schema used to validate structured model
// output before it enters the pipeline.
type Schema struct {
	compiled *jsonschema.Schema
}

// MustSchema compiles a JSON schema document, panicking on error. Schemas
// are package-level constants; a malformed one is a programming error.
func MustSchema(name, document string) *Schema {
	s, err := CompileSchema(name, document)
	if err != nil {
		panic(err)
	}
	return s
}

// CompileSchema compiles a JSON schema document.
func CompileSchema(name, document string) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(document)); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", name, err)
	}

	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}

	return &Schema{compiled: compiled}, nil
}

// Validate checks a JSON payload against the schema.
func (s *Schema) Validate(payload []byte) error {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	if err := s.compiled.Validate(v); err != nil {
		return fmt.Errorf("validate payload: %w", err)
	}

	return nil
}
