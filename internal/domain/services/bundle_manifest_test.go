package services

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stowage-dev/stowage/internal/domain/entities"
)

func writeBundle(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("Failed to write %s: %v", rel, err)
		}
	}
	return dir
}

func TestBuild_ListsFilesSorted(t *testing.T) {
	dir := writeBundle(t, map[string]string{
		"zebra.txt":  "z",
		"app":        "launcher",
		"lib/x.so":   "native",
		"SHA256SUMS": "sums",
	})

	manifest, err := NewBundleManifestService().Build(dir, "myapp", "1.0.0")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if manifest.SchemaVersion != entities.ManifestSchemaVersion {
		t.Errorf("SchemaVersion = %q", manifest.SchemaVersion)
	}
	if manifest.TotalFiles != 4 || len(manifest.Files) != 4 {
		t.Fatalf("Expected 4 files, got %d", len(manifest.Files))
	}

	paths := make([]string, 0, len(manifest.Files))
	for _, f := range manifest.Files {
		paths = append(paths, f.Path)
	}
	if !sort.StringsAreSorted(paths) {
		t.Errorf("File entries not sorted: %v", paths)
	}
	if manifest.ContentHash == "" || manifest.BuildID == "" {
		t.Error("Missing content hash or build ID")
	}
}

func TestBuild_SkipsManifestAndSignature(t *testing.T) {
	dir := writeBundle(t, map[string]string{
		"app":                            "launcher",
		entities.BundleManifestFileName:  "{}",
		entities.BundleSignatureFileName: "sig",
	})

	manifest, err := NewBundleManifestService().Build(dir, "myapp", "1.0.0")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if manifest.TotalFiles != 1 {
		t.Errorf("Expected manifest and signature to be skipped, got %d files", manifest.TotalFiles)
	}
}

func TestBuild_IsContentAddressed(t *testing.T) {
	files := map[string]string{"app": "launcher", "lib/x.so": "native"}
	svc := NewBundleManifestService()

	first, err := svc.Build(writeBundle(t, files), "myapp", "1.0.0")
	if err != nil {
		t.Fatalf("First Build failed: %v", err)
	}
	second, err := svc.Build(writeBundle(t, files), "myapp", "1.0.0")
	if err != nil {
		t.Fatalf("Second Build failed: %v", err)
	}

	if first.ContentHash != second.ContentHash {
		t.Error("Content hash differs for identical trees")
	}
	if first.BuildID != second.BuildID {
		t.Error("Build ID differs for identical trees")
	}

	changed, err := svc.Build(writeBundle(t, map[string]string{"app": "different"}), "myapp", "1.0.0")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if changed.ContentHash == first.ContentHash {
		t.Error("Content hash unchanged for different trees")
	}
	if changed.BuildID == first.BuildID {
		t.Error("Build ID unchanged for different trees")
	}
}

func TestWriteLoadVerify(t *testing.T) {
	dir := writeBundle(t, map[string]string{"app": "launcher", "data.txt": "payload"})
	svc := NewBundleManifestService()

	manifest, err := svc.Build(dir, "myapp", "1.0.0")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := svc.Write(dir, manifest); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	loaded, err := svc.Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.BuildID != manifest.BuildID || loaded.ContentHash != manifest.ContentHash {
		t.Error("Loaded manifest differs from written one")
	}

	if err := svc.Verify(dir); err != nil {
		t.Errorf("Verify failed on untouched bundle: %v", err)
	}
}

func TestVerify_DetectsTampering(t *testing.T) {
	dir := writeBundle(t, map[string]string{"app": "launcher", "data.txt": "payload"})
	svc := NewBundleManifestService()

	manifest, err := svc.Build(dir, "myapp", "1.0.0")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := svc.Write(dir, manifest); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "data.txt"), []byte("changed"), 0o600); err != nil {
		t.Fatalf("Failed to tamper: %v", err)
	}

	if err := svc.Verify(dir); err == nil {
		t.Fatal("Expected verification to fail after tampering")
	}
}
