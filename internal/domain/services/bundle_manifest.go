package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/stowage-dev/stowage/internal/domain/entities"
)

// BundleManifestName is the manifest file written into every collected bundle
const BundleManifestName = entities.BundleManifestFileName

// BundleSignatureName is the detached signature written next to the manifest
const BundleSignatureName = entities.BundleSignatureFileName

// buildIDNamespace anchors the UUIDv5 derivation of build IDs
var buildIDNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://stowage.dev/build-id"))

// BundleManifestService builds, writes, and verifies bundle manifests.
// The content hash and build ID are fully determined by the bundle contents,
// so identical inputs yield identical IDs across runs.
type BundleManifestService struct{}

// NewBundleManifestService creates a new bundle manifest service
func NewBundleManifestService() *BundleManifestService {
	return &BundleManifestService{}
}

// Build walks a collected bundle tree and produces its manifest.
// The manifest file itself and any detached signature are not listed.
func (s *BundleManifestService) Build(bundleDir, name, version string) (*entities.BundleManifest, error) {
	var files []entities.FileEntry

	err := filepath.WalkDir(bundleDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(bundleDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == BundleManifestName || rel == BundleSignatureName {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		sum, err := hashFile(path)
		if err != nil {
			return err
		}

		files = append(files, entities.FileEntry{Path: rel, Size: info.Size(), SHA256: sum})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk bundle tree: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	contentHash := hashEntries(files)
	return &entities.BundleManifest{
		SchemaVersion: entities.ManifestSchemaVersion,
		Name:          name,
		Version:       version,
		BuildID:       uuid.NewSHA1(buildIDNamespace, []byte(contentHash)).String(),
		GeneratedAt:   time.Now().UTC(),
		TotalFiles:    len(files),
		Files:         files,
		ContentHash:   contentHash,
	}, nil
}

// Write stores the manifest at the root of the bundle tree
func (s *BundleManifestService) Write(bundleDir string, manifest *entities.BundleManifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal bundle manifest: %w", err)
	}
	data = append(data, '\n')

	manifestPath := filepath.Join(bundleDir, BundleManifestName)
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write bundle manifest: %w", err)
	}
	return nil
}

// Load reads the manifest from a bundle tree
func (s *BundleManifestService) Load(bundleDir string) (*entities.BundleManifest, error) {
	manifestPath := filepath.Join(bundleDir, BundleManifestName)
	//nolint:gosec // G304: manifest path is derived from the bundle directory
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle manifest: %w", err)
	}

	var manifest entities.BundleManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse bundle manifest: %w", err)
	}
	return &manifest, nil
}

// Verify recomputes the manifest over a bundle tree and compares it against
// the stored one. The generatedAt timestamp is the only field allowed to
// differ.
func (s *BundleManifestService) Verify(bundleDir string) error {
	stored, err := s.Load(bundleDir)
	if err != nil {
		return err
	}

	current, err := s.Build(bundleDir, stored.Name, stored.Version)
	if err != nil {
		return err
	}

	if current.ContentHash != stored.ContentHash {
		return fmt.Errorf("bundle content hash mismatch: expected %s, got %s",
			stored.ContentHash, current.ContentHash)
	}
	if current.BuildID != stored.BuildID {
		return fmt.Errorf("bundle build ID mismatch: expected %s, got %s",
			stored.BuildID, current.BuildID)
	}
	return nil
}

// hashEntries derives the aggregate content hash from the sorted file entries.
// GeneratedAt is deliberately not part of the digest.
func hashEntries(files []entities.FileEntry) string {
	h := sha256.New()
	for _, f := range files {
		fmt.Fprintf(h, "%s %d %s\n", f.Path, f.Size, f.SHA256)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func hashFile(path string) (string, error) {
	//nolint:gosec // G304: path comes from walking the bundle tree
	f, err := os.Open(path)
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
