package gateways

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stowage-dev/stowage/internal/domain/entities"
)

// writeTree writes a module tree under dir
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("Failed to write %s: %v", rel, err)
		}
	}
}

func TestResolveModule(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"helpers.py":      "x = 1\n",
		"pkg/__init__.py": "",
		"pkg/util.py":     "y = 2\n",
	})
	if err := os.WriteFile(filepath.Join(dir, "pkg", "fast.so"), []byte{0x7f, 'E', 'L', 'F'}, 0o600); err != nil {
		t.Fatalf("Failed to write extension: %v", err)
	}

	scanner := NewModuleScanner([]string{dir})

	tests := []struct {
		name      string
		module    string
		kind      entities.ModuleKind
		isPackage bool
	}{
		{name: "plain module", module: "helpers", kind: entities.ModulePure},
		{name: "package", module: "pkg", kind: entities.ModulePure, isPackage: true},
		{name: "submodule", module: "pkg.util", kind: entities.ModulePure},
		{name: "native extension", module: "pkg.fast", kind: entities.ModuleNative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := scanner.ResolveModule(tt.module)
			if err != nil {
				t.Fatalf("ResolveModule(%q) failed: %v", tt.module, err)
			}
			if ref.Kind != tt.kind {
				t.Errorf("Expected kind %s, got %s", tt.kind, ref.Kind)
			}
			if ref.IsPackage != tt.isPackage {
				t.Errorf("Expected IsPackage=%v, got %v", tt.isPackage, ref.IsPackage)
			}
		})
	}

	t.Run("missing module", func(t *testing.T) {
		_, err := scanner.ResolveModule("nosuchmodule")
		if !errors.Is(err, entities.ErrModuleNotFound) {
			t.Errorf("Expected ErrModuleNotFound, got %v", err)
		}
	})
}

func TestResolveModule_RootOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeTree(t, first, map[string]string{"mod.py": "a = 1\n"})
	writeTree(t, second, map[string]string{"mod.py": "b = 2\n"})

	scanner := NewModuleScanner([]string{first, second})
	ref, err := scanner.ResolveModule("mod")
	if err != nil {
		t.Fatalf("ResolveModule failed: %v", err)
	}
	if ref.Path != filepath.Join(first, "mod.py") {
		t.Errorf("Expected first root to win, got %s", ref.Path)
	}
}

func TestScanScript_Missing(t *testing.T) {
	scanner := NewModuleScanner(nil)

	_, err := scanner.ScanScript(filepath.Join(t.TempDir(), "nope.py"))
	var missing *entities.MissingEntryPointError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingEntryPointError, got %v", err)
	}
}

func TestScanImports(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"helpers.py":      "",
		"pkg/__init__.py": "",
		"pkg/util.py":     "",
		"pkg/extra.py":    "",
	})

	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{
			name:   "plain imports",
			source: "import helpers\nimport os, sys\n",
			want:   []string{"helpers", "os", "sys"},
		},
		{
			name:   "aliased import",
			source: "import helpers as h\n",
			want:   []string{"helpers"},
		},
		{
			name:   "from import resolving submodule",
			source: "from pkg import util\n",
			want:   []string{"pkg", "pkg.util"},
		},
		{
			name:   "from import of plain names",
			source: "from helpers import run\n",
			want:   []string{"helpers"},
		},
		{
			name:   "docstring is ignored",
			source: "\"\"\"\nimport fake\n\"\"\"\nimport helpers\n",
			want:   []string{"helpers"},
		},
		{
			name:   "comment is ignored",
			source: "# import fake\nimport helpers  # trailing\n",
			want:   []string{"helpers"},
		},
		{
			name:   "indented import",
			source: "def f():\n    import helpers\n",
			want:   []string{"helpers"},
		},
		{
			name:   "duplicates are collapsed",
			source: "import helpers\nimport helpers\n",
			want:   []string{"helpers"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "subject.py")
			if err := os.WriteFile(path, []byte(tt.source), 0o600); err != nil {
				t.Fatalf("Failed to write module: %v", err)
			}

			scanner := NewModuleScanner([]string{dir})
			ref := &entities.ModuleRef{Name: "subject", Path: path, Kind: entities.ModulePure}

			got, _, err := scanner.ScanImports(ref)
			if err != nil {
				t.Fatalf("ScanImports failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected imports %v, got %v", tt.want, got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Expected imports %v, got %v", tt.want, got)
					break
				}
			}
		})
	}
}

func TestScanImports_RelativeImports(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"pkg/__init__.py":     "",
		"pkg/sibling.py":      "",
		"pkg/sub/__init__.py": "",
		"pkg/sub/mod.py":      "from .. import sibling\nfrom . import helper\n",
		"pkg/sub/helper.py":   "",
	})

	scanner := NewModuleScanner([]string{dir})
	ref := &entities.ModuleRef{
		Name: "pkg.sub.mod",
		Path: filepath.Join(dir, "pkg", "sub", "mod.py"),
		Kind: entities.ModulePure,
	}

	got, warnings, err := scanner.ScanImports(ref)
	if err != nil {
		t.Fatalf("ScanImports failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("Unexpected warnings: %v", warnings)
	}

	want := map[string]bool{"pkg": true, "pkg.sibling": true, "pkg.sub": true, "pkg.sub.helper": true}
	for _, name := range got {
		if !want[name] {
			t.Errorf("Unexpected import %q in %v", name, got)
		}
		delete(want, name)
	}
	for name := range want {
		t.Errorf("Missing expected import %q, got %v", name, got)
	}
}

func TestScanImports_RelativeEscape(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"pkg/__init__.py": "",
		"pkg/mod.py":      "from ... import anything\n",
	})

	scanner := NewModuleScanner([]string{dir})
	ref := &entities.ModuleRef{
		Name: "pkg.mod",
		Path: filepath.Join(dir, "pkg", "mod.py"),
		Kind: entities.ModulePure,
	}

	_, warnings, err := scanner.ScanImports(ref)
	if err != nil {
		t.Fatalf("ScanImports failed: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("Expected one warning for escaping relative import, got %v", warnings)
	}
}

func TestScanImports_NativeModule(t *testing.T) {
	scanner := NewModuleScanner(nil)
	ref := &entities.ModuleRef{Name: "fast", Path: "fast.so", Kind: entities.ModuleNative}

	imports, warnings, err := scanner.ScanImports(ref)
	if err != nil {
		t.Fatalf("ScanImports failed: %v", err)
	}
	if imports != nil || warnings != nil {
		t.Errorf("Expected no imports from a native module, got %v / %v", imports, warnings)
	}
}
