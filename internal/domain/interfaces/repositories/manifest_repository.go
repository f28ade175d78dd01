// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/stowage-dev/stowage/internal/domain/entities"
)

// ManifestRepository defines the interface for accessing bundle descriptors
type ManifestRepository interface {
	// GetManifest loads and validates a bundle descriptor by file path
	GetManifest(ctx context.Context, path string) (*entities.Manifest, error)

	// ListManifests returns all descriptors found in a directory
	ListManifests(ctx context.Context, dir string) ([]*entities.Manifest, error)
}
