package entities

import (
	"errors"
	"fmt"
)

// ErrModuleNotFound indicates a module name resolves to nothing on the search roots
var ErrModuleNotFound = errors.New("module not found")

// MissingEntryPointError indicates the descriptor's entry point does not exist
type MissingEntryPointError struct {
	Path string
}

func (e *MissingEntryPointError) Error() string {
	return fmt.Sprintf("entry point not found: %s", e.Path)
}

// MissingResourceError indicates a declared input file does not exist
type MissingResourceError struct {
	Field string // descriptor field that declared the resource
	Path  string
}

func (e *MissingResourceError) Error() string {
	return fmt.Sprintf("%s resource not found: %s", e.Field, e.Path)
}

// PathEscapeError indicates a destination folder escapes the bundle root
type PathEscapeError struct {
	Dest string
}

func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("destination path escapes the bundle root: %q", e.Dest)
}

// UnresolvedImportError indicates a hidden import could not be resolved
// against any search root
type UnresolvedImportError struct {
	Module string
}

func (e *UnresolvedImportError) Error() string {
	return fmt.Sprintf("hidden import cannot be resolved: %s", e.Module)
}

// ResourceCollisionError indicates two files map to the same destination path.
// Last-writer-wins is explicitly disallowed to avoid shipping the wrong file.
type ResourceCollisionError struct {
	Dest   string
	First  string
	Second string
}

func (e *ResourceCollisionError) Error() string {
	return fmt.Sprintf("destination collision at %q: %s and %s", e.Dest, e.First, e.Second)
}
