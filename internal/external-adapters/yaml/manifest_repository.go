package yaml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stowage-dev/stowage/internal/domain/entities"
)

// ManifestRepository implements repositories.ManifestRepository using YAML files
type ManifestRepository struct {
	parser *ManifestParser
}

// NewManifestRepository creates a new YAML-based descriptor repository
func NewManifestRepository() (*ManifestRepository, error) {
	parser, err := NewManifestParser()
	if err != nil {
		return nil, err
	}
	return &ManifestRepository{parser: parser}, nil
}

// GetManifest loads and validates a bundle descriptor by file path
func (r *ManifestRepository) GetManifest(_ context.Context, path string) (*entities.Manifest, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("descriptor not found: %s", path)
	}
	return r.parser.ParseFile(path)
}

// ListManifests returns all descriptors found in a directory
func (r *ManifestRepository) ListManifests(_ context.Context, dir string) ([]*entities.Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptors directory: %w", err)
	}

	manifests := make([]*entities.Manifest, 0)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yml") && !strings.HasSuffix(name, ".yaml")) {
			continue
		}

		m, err := r.parser.ParseFile(filepath.Join(dir, name))
		if err != nil {
			// Log warning but continue processing other files
			fmt.Fprintf(os.Stderr, "Warning: failed to parse %s: %v\n", name, err)
			continue
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}
