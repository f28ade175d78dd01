// Package entities defines core domain models and data structures.
package entities

// ModuleKind classifies how a resolved module ships in the bundle
type ModuleKind string

const (
	// ModulePure is interpreted code that goes into the code archive
	ModulePure ModuleKind = "pure"
	// ModuleNative is a compiled extension copied byte-for-byte, never archived
	ModuleNative ModuleKind = "native"
)

// DiscoveredVia records how a module entered the dependency closure
type DiscoveredVia string

const (
	// ViaStatic means the module was found by static import scanning
	ViaStatic DiscoveredVia = "static"
	// ViaHidden means the module was force-included by the descriptor
	ViaHidden DiscoveredVia = "hidden"
)

// ModuleRef represents a resolved module in the dependency closure
type ModuleRef struct {
	Name      string // fully-qualified dotted name
	Path      string // absolute source path
	Kind      ModuleKind
	Via       DiscoveredVia
	IsPackage bool // true when the module is a package (__init__ file)
}

// Analysis is the closure of all code and resources needed to run the entry point.
// It is fully determined by the entry point, hidden imports, and excludes for a
// fixed environment.
type Analysis struct {
	Entry    ModuleRef
	Pure     []ModuleRef
	Native   []ModuleRef
	Datas    []ResolvedData
	Warnings []string
}

// ResolvedData is a data resource with its final bundle-relative destination
type ResolvedData struct {
	Source string
	Dest   string // bundle-relative path including the file name
}
