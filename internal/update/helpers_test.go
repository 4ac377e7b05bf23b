package update

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/devcforge/devc/internal/layout"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

// writeTree creates a complete fake installation of the given version in dir.
func writeTree(t *testing.T, dir, version string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, layout.TemplatesDirName), 0755); err != nil {
		t.Fatalf("Failed to create tree dirs: %v", err)
	}
	bin := []byte("#!/bin/sh\necho devc " + version + "\n")
	if err := os.WriteFile(filepath.Join(dir, layout.BinaryName), bin, 0755); err != nil {
		t.Fatalf("Failed to write binary: %v", err)
	}
	tmplRel := filepath.Join(layout.TemplatesDirName, "base.yaml")
	if err := os.WriteFile(filepath.Join(dir, tmplRel), []byte("profile: base\n"), 0644); err != nil {
		t.Fatalf("Failed to write template: %v", err)
	}
	m := &layout.Manifest{
		Version: version,
		Schema:  layout.SchemaVersion,
		Files:   []string{layout.BinaryName, tmplRel},
	}
	if err := layout.WriteManifest(dir, m); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}
}

// makeArchive builds a tar.gz release artifact holding a complete
// installation tree of the given version.
func makeArchive(t *testing.T, version string) []byte {
	t.Helper()
	src := t.TempDir()
	writeTree(t, src, version)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		hdr := &tar.Header{
			Name: rel,
			Mode: int64(info.Mode().Perm()),
			Size: info.Size(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = tw.Write(data)
		return err
	})
	if err != nil {
		t.Fatalf("Failed to build archive: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Failed to close tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("Failed to close gzip writer: %v", err)
	}
	return buf.Bytes()
}

// writeTarGz writes a single-entry tar.gz archive to path.
func writeTarGz(t *testing.T, path, entryName string, content []byte) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	hdr := &tar.Header{Name: entryName, Mode: 0644, Size: int64(len(content))}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatalf("Failed to write tar header: %v", err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatalf("Failed to write tar entry: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write archive: %v", err)
	}
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// testLayout creates a layout with a populated runtime dir and empty cache.
func testLayout(t *testing.T, installedVersion string) layout.Layout {
	t.Helper()
	root := t.TempDir()
	l := layout.Layout{
		RuntimeDir: filepath.Join(root, "runtime"),
		CacheDir:   filepath.Join(root, "cache"),
		ConfigDir:  filepath.Join(root, "config"),
	}
	writeTree(t, l.RuntimeDir, installedVersion)
	if err := os.MkdirAll(l.CacheDir, 0755); err != nil {
		t.Fatalf("Failed to create cache dir: %v", err)
	}
	return l
}

func installedVersion(t *testing.T, l layout.Layout) string {
	t.Helper()
	v, err := l.InstalledVersion()
	if err != nil {
		t.Fatalf("InstalledVersion() error = %v", err)
	}
	return v
}
