package migrate

import (
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

// writeLegacy creates a schema-1 single-directory installation.
func writeLegacy(t *testing.T, dir, version string) {
	t.Helper()
	for _, sub := range []string{"templates", "downloads", "backups"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, layout.BinaryName), []byte("#!/bin/sh\necho devc "+version+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "templates", "base.yaml"), []byte("profile: base\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "VERSION"), []byte(version+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "downloads", "old-artifact.tar.gz"), []byte("stale"), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestMigrator(t *testing.T) (*Migrator, string) {
	t.Helper()
	root := t.TempDir()
	l := layout.Layout{
		RuntimeDir: filepath.Join(root, "runtime"),
		CacheDir:   filepath.Join(root, "cache"),
		ConfigDir:  filepath.Join(root, "config"),
	}
	legacy := filepath.Join(root, "legacy")
	return NewMigrator(l, testLogger()).WithLegacyDir(legacy), legacy
}

func TestNeedsMigration(t *testing.T) {
	m, legacy := newTestMigrator(t)

	if m.NeedsMigration() {
		t.Error("No legacy dir: migration not needed")
	}

	writeLegacy(t, legacy, "1.1.0")
	if !m.NeedsMigration() {
		t.Error("Legacy install present: migration needed")
	}
}

func TestMigrate(t *testing.T) {
	m, legacy := newTestMigrator(t)
	writeLegacy(t, legacy, "1.1.0")

	if err := m.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// The new runtime dir is a complete installation of the legacy version.
	report := m.layout.Validate()
	if !report.Healthy() {
		t.Fatalf("Migrated runtime unhealthy: %+v", report.Problems())
	}
	v, err := m.layout.InstalledVersion()
	if err != nil {
		t.Fatal(err)
	}
	if v != "1.1.0" {
		t.Errorf("Migrated version = %s, want 1.1.0", v)
	}

	man, err := layout.ReadManifest(m.layout.RuntimeDir)
	if err != nil {
		t.Fatal(err)
	}
	if man.Schema != layout.SchemaVersion {
		t.Errorf("Migrated schema = %d, want %d", man.Schema, layout.SchemaVersion)
	}

	// Transient legacy contents are not carried over.
	if _, err := os.Stat(filepath.Join(m.layout.RuntimeDir, "downloads")); !os.IsNotExist(err) {
		t.Error("Transient downloads dir should not be migrated")
	}

	// Legacy install is intact: migration copies, never moves.
	if _, err := os.Stat(filepath.Join(legacy, layout.BinaryName)); err != nil {
		t.Error("Legacy binary should remain after migration")
	}

	// Completion marker written.
	if _, err := os.Stat(filepath.Join(legacy, MarkerFileName)); err != nil {
		t.Error("Migration marker missing")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	m, legacy := newTestMigrator(t)
	writeLegacy(t, legacy, "1.1.0")

	if err := m.Migrate(); err != nil {
		t.Fatalf("First Migrate() error = %v", err)
	}

	// Mutate the migrated tree; a second run must not overwrite it.
	sentinel := filepath.Join(m.layout.RuntimeDir, layout.BinaryName)
	if err := os.WriteFile(sentinel, []byte("#!/bin/sh\necho devc 9.9.9\n"), 0755); err != nil {
		t.Fatal(err)
	}

	if m.NeedsMigration() {
		t.Error("Migration should not be needed after completion")
	}
	if err := m.Migrate(); err != nil {
		t.Fatalf("Second Migrate() error = %v", err)
	}

	data, err := os.ReadFile(sentinel)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "#!/bin/sh\necho devc 9.9.9\n" {
		t.Error("Second Migrate() re-copied files; expected a no-op")
	}
}

func TestNeedsMigration_CurrentInstallWins(t *testing.T) {
	m, legacy := newTestMigrator(t)
	writeLegacy(t, legacy, "1.1.0")

	// A current-schema runtime already exists; the stale legacy dir does
	// not force a migration.
	if err := os.MkdirAll(m.layout.RuntimeDir, 0755); err != nil {
		t.Fatal(err)
	}
	man := &layout.Manifest{Version: "1.2.0", Schema: layout.SchemaVersion}
	if err := layout.WriteManifest(m.layout.RuntimeDir, man); err != nil {
		t.Fatal(err)
	}

	if m.NeedsMigration() {
		t.Error("Current-schema install present: migration not needed")
	}
}

func TestMigrate_VersionFromLegacyManifest(t *testing.T) {
	m, legacy := newTestMigrator(t)
	writeLegacy(t, legacy, "1.1.0")
	// A legacy manifest takes precedence over the VERSION file.
	if err := layout.WriteManifest(legacy, &layout.Manifest{Version: "1.1.5", Schema: 1}); err != nil {
		t.Fatal(err)
	}

	if err := m.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	v, err := m.layout.InstalledVersion()
	if err != nil {
		t.Fatal(err)
	}
	if v != "1.1.5" {
		t.Errorf("Migrated version = %s, want 1.1.5", v)
	}
}
