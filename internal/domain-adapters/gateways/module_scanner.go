// Package gateways provides adapter implementations for external services and tools.
package gateways

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/stowage-dev/stowage/internal/domain/entities"
)

// nativeExtensions lists module file types that must be copied byte-for-byte
// instead of archived
var nativeExtensions = []string{".pyd", ".so", ".dylib", ".dll"}

var (
	importLineRe = regexp.MustCompile(`^\s*import\s+(.+)$`)
	fromLineRe   = regexp.MustCompile(`^\s*from\s+([.\w]+)\s+import\s+(.+)$`)
)

// ModuleScanner resolves dotted module names against a fixed set of search
// roots and extracts static imports from pure-code modules.
// Pure Go implementation - no interpreter or external scanner needed.
type ModuleScanner struct {
	roots []string
}

// NewModuleScanner creates a scanner over the given search roots.
// Root order is significant: the first root that resolves a name wins.
func NewModuleScanner(roots []string) *ModuleScanner {
	return &ModuleScanner{roots: roots}
}

// ResolveModule resolves a fully-qualified dotted name to a module on disk.
// Returns ErrModuleNotFound when no search root satisfies the name.
func (s *ModuleScanner) ResolveModule(name string) (*entities.ModuleRef, error) {
	if name == "" {
		return nil, fmt.Errorf("empty module name: %w", entities.ErrModuleNotFound)
	}

	rel := filepath.FromSlash(strings.ReplaceAll(name, ".", "/"))
	for _, root := range s.roots {
		base := filepath.Join(root, rel)

		// Package: directory with an __init__ file
		initPath := filepath.Join(base, "__init__.py")
		if isRegularFile(initPath) {
			return &entities.ModuleRef{
				Name:      name,
				Path:      initPath,
				Kind:      entities.ModulePure,
				IsPackage: true,
			}, nil
		}

		// Plain source module
		srcPath := base + ".py"
		if isRegularFile(srcPath) {
			kind := entities.ModulePure
			// A source-named file carrying a compiled payload must not be archived
			if IsNativeBinary(srcPath) {
				kind = entities.ModuleNative
			}
			return &entities.ModuleRef{Name: name, Path: srcPath, Kind: kind}, nil
		}

		// Compiled extension module
		for _, ext := range nativeExtensions {
			extPath := base + ext
			if isRegularFile(extPath) {
				return &entities.ModuleRef{Name: name, Path: extPath, Kind: entities.ModuleNative}, nil
			}
		}
	}

	return nil, fmt.Errorf("%s: %w", name, entities.ErrModuleNotFound)
}

// ScanScript resolves an entry-point script that is addressed by path rather
// than by module name.
func (s *ModuleScanner) ScanScript(path string) (*entities.ModuleRef, error) {
	if !isRegularFile(path) {
		return nil, &entities.MissingEntryPointError{Path: path}
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &entities.ModuleRef{Name: name, Path: path, Kind: entities.ModulePure}, nil
}

// ScanImports extracts the statically imported module names from a pure-code
// module. Native modules have no scannable imports. For "from X import a"
// forms, X.a is reported when it resolves as a module, X otherwise.
func (s *ModuleScanner) ScanImports(ref *entities.ModuleRef) ([]string, []string, error) {
	if ref.Kind != entities.ModulePure {
		return nil, nil, nil
	}

	//nolint:gosec // G304: path was resolved from configured search roots
	f, err := os.Open(ref.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open module %s: %w", ref.Name, err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	var (
		imports  []string
		warnings []string
		inString string // active triple-quote delimiter, empty when outside
	)

	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			imports = append(imports, name)
		}
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		line, inString = stripStrings(line, inString)
		if line == "" {
			continue
		}

		if m := fromLineRe.FindStringSubmatch(line); m != nil {
			module, names := m[1], m[2]
			resolved, warn := s.resolveFrom(ref, module, names)
			for _, name := range resolved {
				add(name)
			}
			if warn != "" {
				warnings = append(warnings, warn)
			}
			continue
		}

		if m := importLineRe.FindStringSubmatch(line); m != nil {
			for _, name := range splitImportList(m[1]) {
				add(name)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to scan module %s: %w", ref.Name, err)
	}

	return imports, warnings, nil
}

// resolveFrom expands a "from MODULE import NAMES" statement into module names.
// Relative module references are resolved against the importing module's package.
func (s *ModuleScanner) resolveFrom(ref *entities.ModuleRef, module, names string) ([]string, string) {
	if strings.HasPrefix(module, ".") {
		base, ok := relativeBase(ref, module)
		if !ok {
			return nil, fmt.Sprintf("%s: relative import %q escapes the package tree", ref.Name, module)
		}
		module = base
		if module == "" {
			// "from . import x" at the top level of a root package
			var out []string
			for _, n := range splitImportList(names) {
				if _, err := s.ResolveModule(n); err == nil {
					out = append(out, n)
				}
			}
			return out, ""
		}
	}

	out := []string{module}
	for _, n := range splitImportList(names) {
		if n == "*" {
			continue
		}
		sub := module + "." + n
		if _, err := s.ResolveModule(sub); err == nil {
			out = append(out, sub)
		}
	}
	return out, ""
}

// relativeBase maps leading dots to the enclosing package of ref.
// One dot is the current package, each further dot walks one level up.
func relativeBase(ref *entities.ModuleRef, module string) (string, bool) {
	dots := 0
	for dots < len(module) && module[dots] == '.' {
		dots++
	}
	rest := module[dots:]

	parts := strings.Split(ref.Name, ".")
	if !ref.IsPackage {
		parts = parts[:len(parts)-1]
	}
	up := dots - 1
	if up > len(parts) {
		return "", false
	}
	parts = parts[:len(parts)-up]

	base := strings.Join(parts, ".")
	if rest != "" {
		if base == "" {
			base = rest
		} else {
			base = base + "." + rest
		}
	}
	return base, true
}

// splitImportList splits "a.b as x, c.d" into the imported module names
func splitImportList(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if idx := strings.Index(part, " as "); idx >= 0 {
			part = strings.TrimSpace(part[:idx])
		}
		// Drop trailing noise such as parenthesized continuations
		part = strings.Trim(part, "()\\ ")
		if part != "" && isDottedName(part) {
			out = append(out, part)
		}
	}
	return out
}

func isDottedName(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
		default:
			return false
		}
	}
	return s != "" && s[0] != '.'
}

// stripStrings removes comment text and tracks triple-quoted string state so
// that import-looking lines inside docstrings are ignored.
func stripStrings(line, inString string) (string, string) {
	if inString != "" {
		end := strings.Index(line, inString)
		if end < 0 {
			return "", inString
		}
		line = line[end+len(inString):]
		inString = ""
		return stripStrings(line, "")
	}

	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '#':
			return line[:i], ""
		case strings.HasPrefix(line[i:], `"""`), strings.HasPrefix(line[i:], "'''"):
			delim := line[i : i+3]
			rest, state := stripStrings(line[i+3:], delim)
			return line[:i] + rest, state
		}
	}
	return line, ""
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
