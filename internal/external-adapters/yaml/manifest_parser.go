// Package yaml provides YAML-based bundle descriptor parsing and repository
// implementations.
package yaml

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/stowage-dev/stowage/internal/domain/entities"
	"github.com/stowage-dev/stowage/internal/external-adapters/schema"
)

// yamlManifest represents the raw YAML structure
type yamlManifest struct {
	Name          string             `yaml:"name"`
	Version       string             `yaml:"version"`
	EntryPoint    string             `yaml:"entry_point"`
	SearchPaths   []string           `yaml:"search_paths"`
	DataResources []yamlDataResource `yaml:"data_resources"`
	HiddenImports []string           `yaml:"hidden_imports"`
	Excludes      []string           `yaml:"excludes"`
	Console       bool               `yaml:"console"`
	OneFile       bool               `yaml:"onefile"`
	Icon          string             `yaml:"icon"`
	RequiresTool  string             `yaml:"requires_tool"`
}

type yamlDataResource struct {
	Source string `yaml:"source"`
	Dest   string `yaml:"dest"`
}

// ManifestParser parses YAML bundle descriptor files
type ManifestParser struct {
	validator *schema.Validator
}

// NewManifestParser creates a new YAML parser with schema validation
func NewManifestParser() (*ManifestParser, error) {
	validator, err := schema.NewValidator()
	if err != nil {
		return nil, err
	}
	return &ManifestParser{validator: validator}, nil
}

// ParseFile parses a YAML descriptor file into a Manifest entity.
// Relative paths inside the descriptor are resolved against the descriptor's
// own directory, so a descriptor builds the same tree from any working dir.
func (p *ManifestParser) ParseFile(filePath string) (*entities.Manifest, error) {
	//nolint:gosec // G304: filePath is the descriptor path given by the operator
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	m, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}

	baseDir := filepath.Dir(filePath)
	rebase(m, baseDir)
	return m, nil
}

// Parse parses YAML bytes into a Manifest entity
func (p *ManifestParser) Parse(data []byte) (*entities.Manifest, error) {
	if err := p.validator.Validate(data); err != nil {
		return nil, err
	}

	var raw yamlManifest
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	m := &entities.Manifest{
		Name:          raw.Name,
		Version:       raw.Version,
		EntryPoint:    raw.EntryPoint,
		SearchPaths:   raw.SearchPaths,
		HiddenImports: raw.HiddenImports,
		Excludes:      raw.Excludes,
		Console:       raw.Console,
		OneFile:       raw.OneFile,
		Icon:          raw.Icon,
		RequiresTool:  raw.RequiresTool,
	}
	for _, dr := range raw.DataResources {
		m.DataResources = append(m.DataResources, entities.DataResource{
			Source: dr.Source,
			Dest:   dr.Dest,
		})
	}

	// The entry point's directory is always a search root
	if len(m.SearchPaths) == 0 {
		m.SearchPaths = []string{filepath.Dir(m.EntryPoint)}
	}

	return m, nil
}

// rebase resolves the descriptor's relative paths against its directory
func rebase(m *entities.Manifest, baseDir string) {
	join := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	m.EntryPoint = join(m.EntryPoint)
	m.Icon = join(m.Icon)
	for i := range m.SearchPaths {
		m.SearchPaths[i] = join(m.SearchPaths[i])
	}
	for i := range m.DataResources {
		m.DataResources[i].Source = join(m.DataResources[i].Source)
	}
}
