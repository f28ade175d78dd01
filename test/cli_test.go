package test_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// buildCLI builds the stowage CLI binary for testing
func buildCLI(t *testing.T) string {
	t.Helper()

	// Use a shared build directory
	buildDir := filepath.Join("..", "test-dist", "cli-bin")
	if err := os.MkdirAll(buildDir, 0750); err != nil {
		t.Fatalf("Failed to create build dir: %v", err)
	}

	cliPath, err := filepath.Abs(filepath.Join(buildDir, "stowage"))
	if err != nil {
		t.Fatalf("Failed to resolve CLI path: %v", err)
	}

	// Check if already built
	if _, err := os.Stat(cliPath); err == nil {
		return cliPath
	}

	t.Log("Building stowage CLI...")
	cmd := exec.Command("go", "build", "-o", cliPath, "../cmd/stowage") // #nosec G204 -- test code with controlled input
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build CLI: %v\nOutput: %s", err, output)
	}

	t.Log("CLI built successfully")
	return cliPath
}

// TestCLI_HelpAndVersion tests help output for all commands
func TestCLI_HelpAndVersion(t *testing.T) {
	cliPath := buildCLI(t)

	commands := []string{
		"",
		"build",
		"analyze",
		"list",
		"validate",
		"verify",
	}

	for _, cmd := range commands {
		t.Run("help_"+cmd, func(t *testing.T) {
			args := []string{"--help"}
			if cmd != "" {
				args = []string{cmd, "--help"}
			}

			execCmd := exec.Command(cliPath, args...) // #nosec G204 -- test code with controlled input
			output, err := execCmd.CombinedOutput()

			// Help should exit with 0 or 2 (usage error)
			if err != nil {
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					if exitErr.ExitCode() != 2 {
						t.Errorf("Help exited with unexpected code: %d", exitErr.ExitCode())
					}
				}
			}

			outputStr := string(output)
			if !strings.Contains(outputStr, "Usage") && !strings.Contains(outputStr, "Commands") {
				t.Errorf("Expected usage information in help output")
			}

			t.Logf("Help output:\n%s", outputStr)
		})
	}

	t.Run("version", func(t *testing.T) {
		output, err := exec.Command(cliPath, "version").CombinedOutput() // #nosec G204 -- test code with controlled input
		if err != nil {
			t.Fatalf("version command failed: %v", err)
		}
		if !strings.Contains(string(output), "stowage") {
			t.Errorf("Expected tool name in version output, got: %s", output)
		}
	})
}

// TestCLI_Validate tests the validate command
func TestCLI_Validate(t *testing.T) {
	cliPath := buildCLI(t)
	projectDir := t.TempDir()
	descriptorPath := writeSampleProject(t, projectDir, "")

	badPath := filepath.Join(projectDir, "bad.stow.yml")
	if err := os.WriteFile(badPath, []byte("version: 1.0.0\n"), 0600); err != nil {
		t.Fatalf("Failed to write invalid descriptor: %v", err)
	}

	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{
			name:    "validate valid descriptor",
			args:    []string{"validate", descriptorPath},
			wantErr: false,
		},
		{
			name:    "validate invalid descriptor",
			args:    []string{"validate", badPath},
			wantErr: true,
		},
		{
			name:    "validate without args",
			args:    []string{"validate"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(cliPath, tt.args...) // #nosec G204 -- test code with controlled input
			output, err := cmd.CombinedOutput()

			if tt.wantErr && err == nil {
				t.Errorf("Expected error but got none. Output: %s", output)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v\nOutput: %s", err, output)
			}

			t.Logf("Output:\n%s", output)
		})
	}
}

// TestCLI_BuildAndVerify assembles a bundle through the CLI and verifies it
func TestCLI_BuildAndVerify(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping CLI integration test in short mode")
	}

	cliPath := buildCLI(t)
	projectDir := t.TempDir()
	outputDir := t.TempDir()
	descriptorPath := writeSampleProject(t, projectDir, "")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	buildCmd := exec.CommandContext(ctx, cliPath, "build", descriptorPath, "--output-dir", outputDir) // #nosec G204 -- test code with controlled input
	output, err := buildCmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build command failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(string(output), "Assembly successful") {
		t.Errorf("Expected success message in build output:\n%s", output)
	}

	bundleDir := filepath.Join(outputDir, "sample")
	if _, err := os.Stat(filepath.Join(bundleDir, "sample.pkz")); err != nil {
		t.Fatalf("Code archive missing from bundle: %v", err)
	}

	verifyCmd := exec.CommandContext(ctx, cliPath, "verify", bundleDir) // #nosec G204 -- test code with controlled input
	output, err = verifyCmd.CombinedOutput()
	if err != nil {
		t.Fatalf("verify command failed: %v\nOutput: %s", err, output)
	}
	t.Logf("Verify output:\n%s", output)

	// Tampering must make verification fail
	if err := os.WriteFile(filepath.Join(bundleDir, "assets", "config.json"), []byte("{}"), 0600); err != nil {
		t.Fatalf("Failed to tamper with bundle: %v", err)
	}
	tamperCmd := exec.CommandContext(ctx, cliPath, "verify", bundleDir) // #nosec G204 -- test code with controlled input
	if output, err := tamperCmd.CombinedOutput(); err == nil {
		t.Errorf("Expected verification to fail after tampering. Output: %s", output)
	}
}

// TestCLI_Analyze tests the analyze command JSON output
func TestCLI_Analyze(t *testing.T) {
	cliPath := buildCLI(t)
	projectDir := t.TempDir()
	descriptorPath := writeSampleProject(t, projectDir, "")

	cmd := exec.Command(cliPath, "analyze", descriptorPath, "--json") // #nosec G204 -- test code with controlled input
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("analyze command failed: %v\nOutput: %s", err, output)
	}

	var report struct {
		Entry  string `json:"entry"`
		Pure   []any  `json:"pure"`
		Native []any  `json:"native"`
	}
	if err := json.Unmarshal(output, &report); err != nil {
		t.Fatalf("Invalid JSON in analyze output: %v\nOutput: %s", err, output)
	}
	if report.Entry == "" {
		t.Errorf("Expected entry point in analysis output")
	}
	if len(report.Pure) == 0 {
		t.Errorf("Expected pure modules in analysis output")
	}
	if len(report.Native) == 0 {
		t.Errorf("Expected native modules in analysis output")
	}
}

// TestCLI_List tests the list command
func TestCLI_List(t *testing.T) {
	cliPath := buildCLI(t)
	projectDir := t.TempDir()
	writeSampleProject(t, projectDir, "")

	cmd := exec.Command(cliPath, "list", "--descriptors-dir", projectDir) // #nosec G204 -- test code with controlled input
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("list command failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(string(output), "sample") {
		t.Errorf("Expected sample bundle in list output:\n%s", output)
	}

	t.Logf("Output:\n%s", output)
}
