package entities

// Manifest represents a bundle build descriptor from YAML
type Manifest struct {
	Name          string
	Version       string
	EntryPoint    string
	SearchPaths   []string
	DataResources []DataResource
	HiddenImports []string
	Excludes      []string
	Console       bool
	OneFile       bool
	Icon          string
	RequiresTool  string
}

// DataResource represents an opaque non-code file copied verbatim into the bundle
type DataResource struct {
	Source string
	Dest   string // destination folder, relative to the bundle root
}
