package inference_test

import (
	"testing"

	"github.com/klauselwerk/klausel/internal/inference"
)

const reviewSchema = `{
	"type": "object",
	"required": ["severity", "comment"],
	"properties": {
		"severity": {"type": "string", "enum": ["safe", "medium", "elevated", "high"]},
		"comment": {"type": "string"}
	}
}`

func TestSchemaValidate(t *testing.T) {
	schema := inference.MustSchema("review.json", reviewSchema)

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "valid payload",
			payload: `{"severity": "high", "comment": "unlimited liability"}`,
		},
		{
			name:    "unknown severity",
			payload: `{"severity": "catastrophic", "comment": "x"}`,
			wantErr: true,
		},
		{
			name:    "missing required field",
			payload: `{"severity": "safe"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			payload: `severity: high`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schema.Validate([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCompileSchemaInvalid(t *testing.T) {
	if _, err := inference.CompileSchema("bad.json", `{"type": 42}`); err == nil {
		t.Fatal("expected compile error for invalid schema")
	}
}
