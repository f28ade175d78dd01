package gateways

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"embed"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"text/template"
	"time"
)

//go:embed templates/stub.sh.tmpl
var stubTemplate embed.FS

const (
	// TrailerSize is the fixed size of the index appended to one-file artifacts
	TrailerSize = 64

	trailerMagicStart = "STOWPKG1"
	trailerMagicEnd   = "1GKPWOTS"
)

// Trailer is the fixed-size index at the end of a one-file artifact.
// It records where the payload lives inside the file and its digest.
type Trailer struct {
	PayloadOffset uint64
	PayloadLength uint64
	PayloadSHA256 string
}

// SelfExtractWriter packs a collected bundle tree into a single
// self-extracting artifact: sh stub + gzipped tar payload + trailer.
type SelfExtractWriter struct {
	tmpl *template.Template
}

// NewSelfExtractWriter parses the embedded stub template
func NewSelfExtractWriter() (*SelfExtractWriter, error) {
	tmpl, err := template.ParseFS(stubTemplate, "templates/stub.sh.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse stub template: %w", err)
	}
	return &SelfExtractWriter{tmpl: tmpl}, nil
}

// Pack writes the one-file artifact for a collected bundle tree.
// bundleDir's basename becomes the top-level directory of the payload.
func (w *SelfExtractWriter) Pack(_ context.Context, bundleDir, launcherName, outPath string) error {
	payload, err := packPayload(bundleDir)
	if err != nil {
		return err
	}

	name := filepath.Base(bundleDir)
	stub, err := w.renderStub(name, launcherName, len(payload))
	if err != nil {
		return err
	}

	sum := sha256.Sum256(payload)
	trailer := make([]byte, 0, TrailerSize)
	trailer = append(trailer, trailerMagicStart...)
	trailer = binary.BigEndian.AppendUint64(trailer, uint64(len(stub)))
	trailer = binary.BigEndian.AppendUint64(trailer, uint64(len(payload)))
	trailer = append(trailer, sum[:]...)
	trailer = append(trailer, trailerMagicEnd...)

	var out bytes.Buffer
	out.Grow(len(stub) + len(payload) + TrailerSize)
	out.Write(stub)
	out.Write(payload)
	out.Write(trailer)

	//nolint:gosec // G306: self-extracting artifact must be executable
	if err := os.WriteFile(outPath, out.Bytes(), 0o755); err != nil {
		return fmt.Errorf("failed to write one-file artifact: %w", err)
	}
	return nil
}

// ReadTrailer parses the trailer of a one-file artifact
func ReadTrailer(path string) (*Trailer, error) {
	//nolint:gosec // G304: path names a bundle artifact chosen by the operator
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat artifact: %w", err)
	}
	if info.Size() < TrailerSize {
		return nil, fmt.Errorf("artifact too small to carry a trailer: %s", path)
	}

	buf := make([]byte, TrailerSize)
	if _, err := f.ReadAt(buf, info.Size()-TrailerSize); err != nil {
		return nil, fmt.Errorf("failed to read trailer: %w", err)
	}

	if string(buf[:8]) != trailerMagicStart || string(buf[56:]) != trailerMagicEnd {
		return nil, fmt.Errorf("not a stowage one-file artifact: %s", path)
	}

	return &Trailer{
		PayloadOffset: binary.BigEndian.Uint64(buf[8:16]),
		PayloadLength: binary.BigEndian.Uint64(buf[16:24]),
		PayloadSHA256: hex.EncodeToString(buf[24:56]),
	}, nil
}

// VerifyPayload recomputes the payload digest of a one-file artifact and
// compares it against the trailer
func VerifyPayload(path string) error {
	trailer, err := ReadTrailer(path)
	if err != nil {
		return err
	}

	//nolint:gosec // G304: path names a bundle artifact chosen by the operator
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	//nolint:gosec // G115: payload offset and length fit in int64 for any real artifact
	section := io.NewSectionReader(f, int64(trailer.PayloadOffset), int64(trailer.PayloadLength))
	h := sha256.New()
	if _, err := io.Copy(h, section); err != nil {
		return fmt.Errorf("failed to hash payload: %w", err)
	}

	if actual := hex.EncodeToString(h.Sum(nil)); actual != trailer.PayloadSHA256 {
		return fmt.Errorf("payload digest mismatch: expected %s, got %s", trailer.PayloadSHA256, actual)
	}
	return nil
}

// renderStub produces the extraction stub. Offset and length are rendered at
// a fixed width so the stub's size does not depend on their values.
func (w *SelfExtractWriter) renderStub(name, launcherName string, payloadLen int) ([]byte, error) {
	render := func(offset int) ([]byte, error) {
		var buf bytes.Buffer
		err := w.tmpl.ExecuteTemplate(&buf, "stub.sh.tmpl", map[string]string{
			"Name":          name,
			"LauncherPath":  name + "/" + launcherName,
			"PayloadOffset": fmt.Sprintf("%012d", offset),
			"PayloadLength": fmt.Sprintf("%012d", payloadLen),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to render stub: %w", err)
		}
		return buf.Bytes(), nil
	}

	// First pass sizes the stub, second pass embeds the real offset.
	probe, err := render(0)
	if err != nil {
		return nil, err
	}
	return render(len(probe))
}

// packPayload writes a deterministic gzipped tar of the bundle tree.
// Entry metadata is normalized so repeated packs are byte-identical.
func packPayload(bundleDir string) ([]byte, error) {
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)

	root := filepath.Base(bundleDir)
	err := filepath.WalkDir(bundleDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(bundleDir, path)
		if err != nil {
			return err
		}
		name := root
		if rel != "." {
			name = root + "/" + filepath.ToSlash(rel)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("failed to create tar header: %w", err)
		}
		header.Name = name
		if d.IsDir() {
			header.Name += "/"
		}
		header.ModTime = archiveEpoch
		header.AccessTime = time.Time{}
		header.ChangeTime = time.Time{}
		header.Uid = 0
		header.Gid = 0
		header.Uname = ""
		header.Gname = ""
		header.Format = tar.FormatUSTAR

		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write tar header: %w", err)
		}
		if d.IsDir() {
			return nil
		}

		//nolint:gosec // G304: path comes from walking the bundle tree
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		//nolint:errcheck // Defer close on read-only file
		defer f.Close()

		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("failed to write file to tar: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize payload tar: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize payload gzip: %w", err)
	}
	return buf.Bytes(), nil
}
