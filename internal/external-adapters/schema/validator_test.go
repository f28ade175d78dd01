package schema

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	validator, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator failed: %v", err)
	}

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "minimal valid descriptor",
			yaml: "name: app\nentry_point: main.py\n",
		},
		{
			name: "full descriptor",
			yaml: `name: app
version: 1.0.0
entry_point: main.py
search_paths: [src]
data_resources:
  - source: a.bin
    dest: bin
hidden_imports: [mod]
excludes: [numpy]
console: true
onefile: false
icon: app.ico
requires_tool: ">= 1.0.0"
`,
		},
		{
			name:    "missing name",
			yaml:    "entry_point: main.py\n",
			wantErr: "name",
		},
		{
			name:    "missing entry point",
			yaml:    "name: app\n",
			wantErr: "entry_point",
		},
		{
			name:    "unknown property",
			yaml:    "name: app\nentry_point: main.py\nextra: 1\n",
			wantErr: "extra",
		},
		{
			name:    "wrong type for console",
			yaml:    "name: app\nentry_point: main.py\nconsole: maybe\n",
			wantErr: "console",
		},
		{
			name:    "name with invalid leading character",
			yaml:    "name: \".app\"\nentry_point: main.py\n",
			wantErr: "pattern",
		},
		{
			name:    "data resource missing source",
			yaml:    "name: app\nentry_point: main.py\ndata_resources:\n  - dest: x\n",
			wantErr: "source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate([]byte(tt.yaml))
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate failed: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_RejectsMalformedYAML(t *testing.T) {
	validator, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator failed: %v", err)
	}
	if err := validator.Validate([]byte("{unclosed")); err == nil {
		t.Fatal("Expected error for malformed YAML")
	}
}
