package gateways

import "testing"

func TestToolGate_Check(t *testing.T) {
	gate, err := NewToolGate("1.2.3")
	if err != nil {
		t.Fatalf("NewToolGate failed: %v", err)
	}

	tests := []struct {
		name       string
		constraint string
		wantErr    bool
	}{
		{name: "empty constraint passes", constraint: "", wantErr: false},
		{name: "satisfied range", constraint: ">= 1.0.0", wantErr: false},
		{name: "satisfied caret", constraint: "^1.2", wantErr: false},
		{name: "unsatisfied minimum", constraint: ">= 2.0.0", wantErr: true},
		{name: "unsatisfied exact", constraint: "= 1.0.0", wantErr: true},
		{name: "invalid expression", constraint: "not-a-constraint", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.Check(tt.constraint)
			if tt.wantErr && err == nil {
				t.Errorf("Check(%q) expected error", tt.constraint)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Check(%q) unexpected error: %v", tt.constraint, err)
			}
		})
	}
}

func TestNewToolGate_InvalidVersion(t *testing.T) {
	if _, err := NewToolGate("not-semver"); err == nil {
		t.Fatal("Expected error for invalid version")
	}
}
