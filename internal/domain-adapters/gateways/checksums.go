package gateways

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stowage-dev/stowage/internal/domain/entities"
)

// SumsFileName is the checksum file written at the root of a collected bundle
const SumsFileName = "SHA256SUMS"

// checksumWriter produces and verifies SHA256SUMS files over a bundle tree.
// Pure Go implementation - no external sha256sum binary needed.
type checksumWriter struct{}

// NewChecksumWriter creates a new checksum writer
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewChecksumWriter() *checksumWriter {
	return &checksumWriter{}
}

// filesToSum lists the bundle files covered by the sums file, sorted.
// The sums file itself and the manifest signature are not covered: the
// signature is written after the sums file exists.
func (w *checksumWriter) filesToSum(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == SumsFileName || rel == entities.BundleSignatureFileName {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk bundle tree: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// WriteSums writes a SHA256SUMS file covering every file in the tree
func (w *checksumWriter) WriteSums(dir string) error {
	files, err := w.filesToSum(dir)
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, rel := range files {
		sum, err := w.CalculateChecksum(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "%s  %s\n", sum, rel)
	}

	if err := os.WriteFile(filepath.Join(dir, SumsFileName), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", SumsFileName, err)
	}
	return nil
}

// VerifySums recomputes every checksum recorded in the SHA256SUMS file and
// reports the first mismatch or missing file
func (w *checksumWriter) VerifySums(dir string) error {
	//nolint:gosec // G304: sums path is derived from the bundle directory
	f, err := os.Open(filepath.Join(dir, SumsFileName))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", SumsFileName, err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	covered := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		expected, rel, ok := strings.Cut(line, "  ")
		if !ok {
			return fmt.Errorf("malformed line in %s: %q", SumsFileName, line)
		}
		covered[rel] = true

		actual, err := w.CalculateChecksum(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return fmt.Errorf("%s: %w", rel, err)
		}
		if actual != expected {
			return fmt.Errorf("checksum mismatch for %s: expected %s, got %s", rel, expected, actual)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", SumsFileName, err)
	}

	// A file added after the build is as suspect as a modified one
	files, err := w.filesToSum(dir)
	if err != nil {
		return err
	}
	for _, rel := range files {
		if rel == entities.BundleManifestFileName {
			// Written after the sums file, covered by its own content hash
			continue
		}
		if !covered[rel] {
			return fmt.Errorf("file not covered by %s: %s", SumsFileName, rel)
		}
	}
	return nil
}

// CalculateChecksum calculates the SHA256 checksum of a file
func (w *checksumWriter) CalculateChecksum(filePath string) (string, error) {
	//nolint:gosec // G304: file path comes from walking the bundle tree
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
