package gateways

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/stowage-dev/stowage/internal/domain/entities"
)

// Collector builds the collected output tree through a staging directory.
// The staging dir lives next to the final destination so the commit rename is
// atomic; a failed build removes the staging dir and leaves no partial bundle.
type Collector struct{}

// NewCollector creates a new collector
func NewCollector() *Collector {
	return &Collector{}
}

// Staging is an in-progress bundle tree. All writes go through AddFile so
// destination escapes and collisions are rejected before anything is copied.
type Staging struct {
	outDir string
	name   string
	dir    string
	dests  map[string]string
}

// NewStaging creates a staging directory under outDir for a bundle.
// Names of files generated at finalization time are reserved up front so
// descriptor inputs cannot claim them.
func (c *Collector) NewStaging(outDir, name string) (*Staging, error) {
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	dir, err := os.MkdirTemp(outDir, "."+name+".partial-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	return &Staging{
		outDir: outDir,
		name:   name,
		dir:    dir,
		dests: map[string]string{
			SumsFileName:                     "<reserved>",
			entities.BundleManifestFileName:  "<reserved>",
			entities.BundleSignatureFileName: "<reserved>",
		},
	}, nil
}

// Claim registers a file that was written into the staging tree outside of
// AddFile, so later writes to the same destination collide instead of
// silently replacing it.
func (st *Staging) Claim(source, destRel string) error {
	destRel = filepath.ToSlash(destRel)
	if destRel == "" || !filepath.IsLocal(filepath.FromSlash(destRel)) {
		return &entities.PathEscapeError{Dest: destRel}
	}
	if prev, ok := st.dests[destRel]; ok {
		return &entities.ResourceCollisionError{Dest: destRel, First: prev, Second: source}
	}
	st.dests[destRel] = source
	return nil
}

// Dir returns the staging directory path
func (st *Staging) Dir() string {
	return st.dir
}

// AddFile copies source verbatim to destRel inside the staging tree.
// The source's permission bits are preserved so bundled tools stay executable.
func (st *Staging) AddFile(source, destRel string) error {
	destRel = filepath.ToSlash(destRel)
	if destRel == "" || !filepath.IsLocal(filepath.FromSlash(destRel)) {
		return &entities.PathEscapeError{Dest: destRel}
	}
	if prev, ok := st.dests[destRel]; ok {
		return &entities.ResourceCollisionError{Dest: destRel, First: prev, Second: source}
	}
	st.dests[destRel] = source

	destPath := filepath.Join(st.dir, filepath.FromSlash(destRel))
	if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
		return fmt.Errorf("failed to create bundle subdirectory: %w", err)
	}

	return copyFile(source, destPath)
}

// AddBytes writes generated content to destRel inside the staging tree,
// subject to the same escape and collision rules as AddFile
func (st *Staging) AddBytes(content []byte, destRel string, mode os.FileMode) error {
	destRel = filepath.ToSlash(destRel)
	if destRel == "" || !filepath.IsLocal(filepath.FromSlash(destRel)) {
		return &entities.PathEscapeError{Dest: destRel}
	}
	if prev, ok := st.dests[destRel]; ok {
		return &entities.ResourceCollisionError{Dest: destRel, First: prev, Second: "<generated>"}
	}
	st.dests[destRel] = "<generated>"

	destPath := filepath.Join(st.dir, filepath.FromSlash(destRel))
	if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
		return fmt.Errorf("failed to create bundle subdirectory: %w", err)
	}
	if err := os.WriteFile(destPath, content, mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", destRel, err)
	}
	return nil
}

// Commit atomically moves the staged tree to its final location, replacing
// any previous bundle of the same name
func (st *Staging) Commit() (string, error) {
	final := filepath.Join(st.outDir, st.name)

	if err := os.RemoveAll(final); err != nil {
		return "", fmt.Errorf("failed to remove previous bundle: %w", err)
	}
	if err := os.Rename(st.dir, final); err != nil {
		return "", fmt.Errorf("failed to finalize bundle: %w", err)
	}
	return final, nil
}

// Discard removes the staging tree. Safe to call after Commit.
func (st *Staging) Discard() {
	_ = os.RemoveAll(st.dir)
}

func copyFile(source, dest string) error {
	//nolint:gosec // G304: source path comes from the validated descriptor
	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", source, err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", source, err)
	}

	//nolint:gosec // G304: dest path is inside the staging directory
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", source, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dest, err)
	}
	return nil
}
