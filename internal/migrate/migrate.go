// Package migrate upgrades a legacy single-directory devc installation to
// the current runtime/cache/config split.
//
// The legacy layout (schema 1) kept the binary, templates, downloads and
// backups together in one directory. Migration copies the durable pieces
// into the runtime directory, never moving them, so a failed migration
// leaves the legacy installation fully usable. A marker file records
// completion; re-running is a no-op detected by the marker alone.
package migrate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/devcforge/devc/internal/layout"
)

// MarkerFileName records a completed migration inside the legacy directory.
const MarkerFileName = ".migrated"

// legacyVersionFile held the installed version in schema-1 installations.
const legacyVersionFile = "VERSION"

// transientDirs are legacy subdirectories that were always safe to discard;
// they move to the cache conceptually but are simply not copied.
var transientDirs = map[string]bool{
	"downloads": true,
	"backups":   true,
}

// Migrator performs the one-shot legacy layout upgrade.
type Migrator struct {
	layout    layout.Layout
	legacyDir string
	logger    *log.Logger
}

// NewMigrator creates a Migrator for the given target layout. The legacy
// location defaults to ~/.devc.
func NewMigrator(l layout.Layout, logger *log.Logger) *Migrator {
	legacy := ""
	if home, err := os.UserHomeDir(); err == nil {
		legacy = filepath.Join(home, ".devc")
	}
	return &Migrator{layout: l, legacyDir: legacy, logger: logger}
}

// WithLegacyDir overrides the legacy installation location.
func (m *Migrator) WithLegacyDir(dir string) *Migrator {
	m.legacyDir = dir
	return m
}

// NeedsMigration reports whether a legacy installation exists and has not
// been migrated yet. A populated, current runtime directory also counts as
// migrated even without the marker, so a fresh install next to an old
// legacy directory does not trigger a pointless copy.
func (m *Migrator) NeedsMigration() bool {
	if m.legacyDir == "" {
		return false
	}
	if _, err := os.Stat(filepath.Join(m.legacyDir, MarkerFileName)); err == nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(m.legacyDir, layout.BinaryName)); err != nil {
		return false
	}
	if man, err := layout.ReadManifest(m.layout.RuntimeDir); err == nil && man.Schema >= layout.SchemaVersion {
		return false
	}
	return true
}

// Migrate copies the legacy installation into the split layout and writes
// the completion marker. Idempotent: when NeedsMigration is false it
// returns immediately.
func (m *Migrator) Migrate() error {
	if !m.NeedsMigration() {
		return nil
	}
	m.logger.Info("migrating legacy installation", "from", m.legacyDir, "to", m.layout.RuntimeDir)

	if err := os.MkdirAll(m.layout.RuntimeDir, 0755); err != nil {
		return fmt.Errorf("failed to create runtime directory: %w", err)
	}

	files, err := m.copyDurable()
	if err != nil {
		return fmt.Errorf("migration copy failed: %w", err)
	}

	version := m.legacyVersion()
	manifest := &layout.Manifest{
		Version: version,
		Schema:  layout.SchemaVersion,
		Files:   files,
	}
	if err := layout.WriteManifest(m.layout.RuntimeDir, manifest); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(m.legacyDir, MarkerFileName), []byte(version+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write migration marker: %w", err)
	}

	m.logger.Info("migration complete", "version", version, "files", len(files))
	return nil
}

// copyDurable copies everything except transient directories and legacy
// bookkeeping files, returning the copied paths relative to the runtime dir.
func (m *Migrator) copyDurable() ([]string, error) {
	var files []string
	err := filepath.WalkDir(m.legacyDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(m.legacyDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		top := strings.SplitN(rel, string(filepath.Separator), 2)[0]
		if transientDirs[top] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if rel == MarkerFileName || rel == legacyVersionFile || rel == layout.ManifestFileName {
			return nil
		}

		dst := filepath.Join(m.layout.RuntimeDir, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0755)
		}
		if err := copyFile(path, dst); err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	return files, err
}

// legacyVersion determines the installed version of the legacy tree.
func (m *Migrator) legacyVersion() string {
	if man, err := layout.ReadManifest(m.legacyDir); err == nil && man.Version != "" {
		return man.Version
	}
	if data, err := os.ReadFile(filepath.Join(m.legacyDir, legacyVersionFile)); err == nil {
		if v := strings.TrimSpace(string(data)); v != "" {
			return v
		}
	}
	return "0.0.0"
}

// copyFile copies src to dst preserving the file mode.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
