package gateways

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/stowage-dev/stowage/internal/domain/entities"
)

// ArchiveExtension is the suffix of the pure-code archive inside a bundle
const ArchiveExtension = ".pkz"

// archiveEpoch is the fixed modification time stamped on every archive entry.
// Zip cannot represent times before 1980; pinning the timestamp keeps repeated
// builds byte-identical.
var archiveEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Archiver writes the pure-code partition of an analysis into a deterministic
// zip archive: entries sorted by name, fixed timestamps, fixed compression.
type Archiver struct{}

// NewArchiver creates a new archiver
func NewArchiver() *Archiver {
	return &Archiver{}
}

// CreateArchive writes `<name>.pkz` into destDir and returns its path.
// The entry script is stored as __main__.py so the archive is directly
// startable; every pure module is stored under its package path.
func (a *Archiver) CreateArchive(_ context.Context, analysis *entities.Analysis, name, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	type member struct {
		archivePath string
		sourcePath  string
	}

	members := []member{{archivePath: "__main__.py", sourcePath: analysis.Entry.Path}}
	for _, ref := range analysis.Pure {
		members = append(members, member{archivePath: moduleArchivePath(ref), sourcePath: ref.Path})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].archivePath < members[j].archivePath })

	archivePath := filepath.Join(destDir, name+ArchiveExtension)
	//nolint:gosec // G304: archive path is constructed for bundle output
	out, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, m := range members {
		if err := writeArchiveMember(zw, m.archivePath, m.sourcePath); err != nil {
			_ = zw.Close()
			return "", err
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close archive: %w", err)
	}

	return archivePath, nil
}

func writeArchiveMember(zw *zip.Writer, archivePath, sourcePath string) error {
	header := &zip.FileHeader{
		Name:     archivePath,
		Method:   zip.Deflate,
		Modified: archiveEpoch,
	}

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create archive entry %s: %w", archivePath, err)
	}

	//nolint:gosec // G304: source path was resolved during analysis
	f, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open module %s: %w", sourcePath, err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to write archive entry %s: %w", archivePath, err)
	}
	return nil
}

// moduleArchivePath maps a module to its path inside the code archive
func moduleArchivePath(ref entities.ModuleRef) string {
	base := strings.ReplaceAll(ref.Name, ".", "/")
	if ref.IsPackage {
		return base + "/__init__.py"
	}
	return base + ".py"
}
