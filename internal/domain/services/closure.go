// Package services implements the domain logic of bundle assembly.
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stowage-dev/stowage/internal/domain/entities"
)

// ModuleResolver resolves module names and extracts static imports.
// Implemented by the module scanner gateway.
type ModuleResolver interface {
	// ResolveModule resolves a dotted name; wraps entities.ErrModuleNotFound
	// when no search root satisfies it
	ResolveModule(name string) (*entities.ModuleRef, error)

	// ScanScript resolves an entry-point script addressed by path
	ScanScript(path string) (*entities.ModuleRef, error)

	// ScanImports returns the statically imported names of a module plus
	// non-fatal scan warnings
	ScanImports(ref *entities.ModuleRef) ([]string, []string, error)
}

// ClosureService computes the dependency closure of a bundle descriptor.
// Excludes are applied by name prefix before resolution; hidden imports take
// precedence over excludes and are closed recursively.
type ClosureService struct {
	resolver ModuleResolver
}

// NewClosureService creates a new closure service
func NewClosureService(resolver ModuleResolver) *ClosureService {
	return &ClosureService{resolver: resolver}
}

// Compute derives the full analysis result for a descriptor.
// The result is deterministic for a fixed descriptor and environment.
func (s *ClosureService) Compute(_ context.Context, m *entities.Manifest) (*entities.Analysis, error) {
	entry, err := s.resolver.ScanScript(m.EntryPoint)
	if err != nil {
		return nil, err
	}

	analysis := &entities.Analysis{Entry: *entry}

	hidden := make(map[string]bool, len(m.HiddenImports))
	for _, name := range m.HiddenImports {
		hidden[name] = true
	}

	excluded := func(name string) bool {
		if hidden[name] {
			return false
		}
		for _, prefix := range m.Excludes {
			if name == prefix || strings.HasPrefix(name, prefix+".") {
				return true
			}
		}
		return false
	}

	included := make(map[string]*entities.ModuleRef)
	var queue []*entities.ModuleRef

	// Seed the queue with the entry point's direct imports.
	entryImports, warnings, err := s.resolver.ScanImports(entry)
	if err != nil {
		return nil, err
	}
	analysis.Warnings = append(analysis.Warnings, warnings...)
	for _, name := range entryImports {
		if excluded(name) {
			continue
		}
		dep, err := s.resolveStatic(entry.Name, name, analysis)
		if err != nil {
			return nil, err
		}
		if dep != nil {
			queue = append(queue, dep)
		}
	}

	// Hidden imports are resolved up front: an unresolvable one is a hard
	// stop, never silently dropped.
	for _, name := range m.HiddenImports {
		ref, err := s.resolver.ResolveModule(name)
		if err != nil {
			if errors.Is(err, entities.ErrModuleNotFound) {
				return nil, &entities.UnresolvedImportError{Module: name}
			}
			return nil, err
		}
		ref.Via = entities.ViaHidden
		queue = append(queue, ref)
	}

	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]

		if included[ref.Name] != nil {
			continue
		}
		included[ref.Name] = ref
		queue = append(queue, s.ancestorPackages(ref, included)...)

		names, warnings, err := s.resolver.ScanImports(ref)
		if err != nil {
			return nil, err
		}
		analysis.Warnings = append(analysis.Warnings, warnings...)

		for _, name := range names {
			if excluded(name) || included[name] != nil {
				continue
			}
			dep, err := s.resolveStatic(ref.Name, name, analysis)
			if err != nil {
				return nil, err
			}
			if dep != nil {
				dep.Via = ref.Via
				queue = append(queue, dep)
			}
		}
	}

	for _, ref := range included {
		switch ref.Kind {
		case entities.ModuleNative:
			analysis.Native = append(analysis.Native, *ref)
		default:
			analysis.Pure = append(analysis.Pure, *ref)
		}
	}
	sort.Slice(analysis.Pure, func(i, j int) bool { return analysis.Pure[i].Name < analysis.Pure[j].Name })
	sort.Slice(analysis.Native, func(i, j int) bool { return analysis.Native[i].Name < analysis.Native[j].Name })

	datas, err := resolveDataResources(m)
	if err != nil {
		return nil, err
	}
	analysis.Datas = datas

	return analysis, nil
}

// resolveStatic resolves a statically referenced import. A module the search
// paths cannot satisfy is recorded as a warning, not a failure: the runtime
// environment may still provide it.
func (s *ClosureService) resolveStatic(from, name string, analysis *entities.Analysis) (*entities.ModuleRef, error) {
	dep, err := s.resolver.ResolveModule(name)
	if err != nil {
		if errors.Is(err, entities.ErrModuleNotFound) {
			analysis.Warnings = append(analysis.Warnings,
				fmt.Sprintf("%s: import %q not found on search paths, skipped", from, name))
			return nil, nil
		}
		return nil, err
	}
	dep.Via = entities.ViaStatic
	return dep, nil
}

// ancestorPackages queues the enclosing packages of an included module so the
// bundle always contains a complete package chain. The chain ships even when
// an exclude prefix matches an ancestor: a module cannot be imported without
// its parent packages.
func (s *ClosureService) ancestorPackages(ref *entities.ModuleRef, included map[string]*entities.ModuleRef) []*entities.ModuleRef {
	var out []*entities.ModuleRef

	parts := strings.Split(ref.Name, ".")
	for i := 1; i < len(parts); i++ {
		name := strings.Join(parts[:i], ".")
		if included[name] != nil {
			continue
		}
		parent, err := s.resolver.ResolveModule(name)
		if err != nil {
			// Namespace-style parent without an __init__ file
			continue
		}
		parent.Via = ref.Via
		out = append(out, parent)
	}
	return out
}

// resolveDataResources validates declared data resources and computes their
// final bundle-relative destinations. Traversal and collisions are rejected
// here, before any file is copied.
func resolveDataResources(m *entities.Manifest) ([]entities.ResolvedData, error) {
	byDest := make(map[string]string)
	datas := make([]entities.ResolvedData, 0, len(m.DataResources))

	for _, dr := range m.DataResources {
		dest := path.Clean(filepath.ToSlash(dr.Dest))
		if dest == "." {
			dest = ""
		}
		if dest != "" && (path.IsAbs(dest) || !filepath.IsLocal(filepath.FromSlash(dest))) {
			return nil, &entities.PathEscapeError{Dest: dr.Dest}
		}

		info, err := os.Stat(dr.Source)
		if err != nil || !info.Mode().IsRegular() {
			return nil, &entities.MissingResourceError{Field: "data_resources", Path: dr.Source}
		}

		full := path.Join(dest, filepath.Base(dr.Source))
		if prev, ok := byDest[full]; ok {
			return nil, &entities.ResourceCollisionError{Dest: full, First: prev, Second: dr.Source}
		}
		byDest[full] = dr.Source

		datas = append(datas, entities.ResolvedData{Source: dr.Source, Dest: full})
	}
	return datas, nil
}
