package formatting_test

import (
	"errors"
	"testing"

	"github.com/klauselwerk/klausel/pkg/formatting"
)

type sample struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestParse(t *testing.T) {
	t.Run("direct JSON", func(t *testing.T) {
		got, err := formatting.Parse[sample](`{"name":"test","value":42}`)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got.Name != "test" || got.Value != 42 {
			t.Errorf("Parse = %+v, want {Name:test Value:42}", got)
		}
	})

	t.Run("direct JSON with whitespace", func(t *testing.T) {
		got, err := formatting.Parse[sample](`  {"name":"padded","value":1}  `)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got.Name != "padded" {
			t.Errorf("Name = %q, want padded", got.Name)
		}
	})

	t.Run("markdown fenced JSON", func(t *testing.T) {
		input := "```json\n{\"name\":\"fenced\",\"value\":7}\n```"
		got, err := formatting.Parse[sample](input)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got.Name != "fenced" || got.Value != 7 {
			t.Errorf("Parse = %+v, want {Name:fenced Value:7}", got)
		}
	})

	t.Run("fenced with surrounding prose", func(t *testing.T) {
		input := "Here is the result:\n```json\n{\"name\":\"wrapped\",\"value\":5}\n```\nDone."
		got, err := formatting.Parse[sample](input)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got.Name != "wrapped" {
			t.Errorf("Name = %q, want wrapped", got.Name)
		}
	})

	t.Run("invalid content", func(t *testing.T) {
		_, err := formatting.Parse[sample]("this is not json")
		if !errors.Is(err, formatting.ErrParseFailed) {
			t.Errorf("expected ErrParseFailed, got %v", err)
		}
	})
}

func TestExtractJSON(t *testing.T) {
	t.Run("array payload", func(t *testing.T) {
		raw, err := formatting.ExtractJSON(`[{"a":1},{"a":2}]`)
		if err != nil {
			t.Fatalf("ExtractJSON error: %v", err)
		}
		if string(raw) != `[{"a":1},{"a":2}]` {
			t.Errorf("raw = %s", raw)
		}
	})

	t.Run("fence without language tag", func(t *testing.T) {
		raw, err := formatting.ExtractJSON("```\n{\"a\":1}\n```")
		if err != nil {
			t.Fatalf("ExtractJSON error: %v", err)
		}
		if string(raw) != `{"a":1}` {
			t.Errorf("raw = %s", raw)
		}
	})
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"50MB", 50 * 1024 * 1024, false},
		{"1 KB", 1024, false},
		{"2048", 2048, false},
		{"1.5kb", 1536, false},
		{"", 0, true},
		{"10XB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBytes error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
