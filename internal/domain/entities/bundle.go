package entities

import "time"

// BundleMode distinguishes the two packaging output modes
type BundleMode string

const (
	// ModeFolder produces a collected directory tree
	ModeFolder BundleMode = "onefolder"
	// ModeOneFile produces a single self-extracting artifact
	ModeOneFile BundleMode = "onefile"
)

// ManifestSchemaVersion is the schema version written into bundle manifests
const ManifestSchemaVersion = "1"

// BundleManifestFileName is the manifest written at the root of every
// collected bundle
const BundleManifestFileName = "stowage-manifest.json"

// BundleSignatureFileName is the detached signature written next to the
// bundle manifest
const BundleSignatureFileName = BundleManifestFileName + ".asc"

// Bundle represents a produced output artifact
type Bundle struct {
	Name    string
	Version string
	Path    string
	Mode    BundleMode
}

// BundleManifest describes the contents of a collected bundle
type BundleManifest struct {
	SchemaVersion string      `json:"schemaVersion"`
	Name          string      `json:"name"`
	Version       string      `json:"version"`
	BuildID       string      `json:"buildId"`
	GeneratedAt   time.Time   `json:"generatedAt"`
	TotalFiles    int         `json:"totalFiles"`
	Files         []FileEntry `json:"files"`
	ContentHash   string      `json:"contentHash"`
}

// FileEntry represents a single file inside the bundle
type FileEntry struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}
