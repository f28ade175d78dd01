package gateways

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ToolGate checks a descriptor's requires_tool constraint against the running
// assembler version, so descriptors written for a newer assembler fail fast
// instead of producing a subtly wrong bundle.
type ToolGate struct {
	version *semver.Version
}

// NewToolGate creates a gate for the given assembler version
func NewToolGate(version string) (*ToolGate, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return nil, fmt.Errorf("invalid assembler version %q: %w", version, err)
	}
	return &ToolGate{version: v}, nil
}

// Check validates a semver constraint expression. An empty constraint passes.
func (g *ToolGate) Check(constraint string) error {
	if constraint == "" {
		return nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid requires_tool constraint %q: %w", constraint, err)
	}
	if !c.Check(g.version) {
		return fmt.Errorf("descriptor requires assembler %s, running %s", constraint, g.version)
	}
	return nil
}
