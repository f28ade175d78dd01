package gateways

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/stowage-dev/stowage/internal/domain/entities"
)

//go:embed templates/launcher.sh.tmpl templates/launcher.bat.tmpl
var launcherTemplates embed.FS

// launcherData is the render context for launcher templates
type launcherData struct {
	Name        string
	ArchiveName string
	Console     bool
}

// LauncherWriter emits the platform launchers referencing the code archive.
// Both the POSIX and the Windows launcher are written so a collected tree is
// relocatable across platforms that can run the bundled interpreter.
type LauncherWriter struct {
	tmpl *template.Template
}

// NewLauncherWriter parses the embedded launcher templates
func NewLauncherWriter() (*LauncherWriter, error) {
	tmpl, err := template.ParseFS(launcherTemplates, "templates/launcher.sh.tmpl", "templates/launcher.bat.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse launcher templates: %w", err)
	}
	return &LauncherWriter{tmpl: tmpl}, nil
}

// Write renders the launchers into the staging tree and copies the icon
// resource when the descriptor declares one. A declared-but-missing icon
// fails the build.
func (w *LauncherWriter) Write(st *Staging, m *entities.Manifest, archiveName string) error {
	data := launcherData{
		Name:        m.Name,
		ArchiveName: archiveName,
		Console:     m.Console,
	}

	sh, err := w.render("launcher.sh.tmpl", data)
	if err != nil {
		return err
	}
	//nolint:gosec // G302: launchers must be executable
	if err := st.AddBytes(sh, m.Name, 0o755); err != nil {
		return err
	}

	bat, err := w.render("launcher.bat.tmpl", data)
	if err != nil {
		return err
	}
	if err := st.AddBytes(bat, m.Name+".bat", 0o644); err != nil {
		return err
	}

	if m.Icon != "" {
		info, err := os.Stat(m.Icon)
		if err != nil || !info.Mode().IsRegular() {
			return &entities.MissingResourceError{Field: "icon", Path: m.Icon}
		}
		if err := st.AddFile(m.Icon, filepath.Base(m.Icon)); err != nil {
			return err
		}
	}

	return nil
}

// LauncherName returns the name of the POSIX launcher inside the bundle
func LauncherName(m *entities.Manifest) string {
	return m.Name
}

func (w *LauncherWriter) render(name string, data launcherData) ([]byte, error) {
	var buf bytes.Buffer
	if err := w.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
