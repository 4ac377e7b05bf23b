// Package layout resolves and validates devc's on-disk installation layout.
//
// The layout splits into three directories: the runtime directory holds the
// active executable, support files and the version manifest; the cache
// directory holds transient artifacts that are always safely deletable; the
// config directory holds user configuration that updates never touch.
package layout

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/devcforge/devc/internal/config"
)

const (
	// ManifestFileName is the version manifest inside the runtime directory.
	ManifestFileName = "manifest.toml"

	// BinaryName is the executable expected inside the runtime directory.
	BinaryName = "devc"

	// TemplatesDirName holds the bundled scaffold templates inside the
	// runtime directory.
	TemplatesDirName = "templates"

	// SchemaVersion is the current installation layout schema. Version 1
	// was the legacy single-directory layout.
	SchemaVersion = 2

	// PartialSuffix marks files left behind by an interrupted write.
	PartialSuffix = ".partial"
)

// Layout describes where the installation's files live for one invocation.
type Layout struct {
	RuntimeDir string
	CacheDir   string
	ConfigDir  string
}

// ResolvedPaths is the subset of the layout exposed to the scaffolding
// subsystem, which needs to locate bundled templates and user config but
// has no business near the cache.
type ResolvedPaths struct {
	RuntimeDir string
	ConfigDir  string
}

// Resolve builds the Layout from an already-loaded configuration.
func Resolve(cfg *config.Config) Layout {
	return Layout{
		RuntimeDir: cfg.RuntimeDir,
		CacheDir:   cfg.CacheDir,
		ConfigDir:  cfg.ConfigDir,
	}
}

// Paths returns the collaborator-facing view of the layout.
func (l Layout) Paths() ResolvedPaths {
	return ResolvedPaths{RuntimeDir: l.RuntimeDir, ConfigDir: l.ConfigDir}
}

// ManifestPath returns the path of the version manifest.
func (l Layout) ManifestPath() string {
	return filepath.Join(l.RuntimeDir, ManifestFileName)
}

// BinaryPath returns the path of the installed executable.
func (l Layout) BinaryPath() string {
	return filepath.Join(l.RuntimeDir, BinaryName)
}

// TemplatesDir returns the bundled templates directory.
func (l Layout) TemplatesDir() string {
	return filepath.Join(l.RuntimeDir, TemplatesDirName)
}

// InstalledVersion reads the installed version from the manifest.
// Returns an error if the manifest is missing or unparseable.
func (l Layout) InstalledVersion() (string, error) {
	m, err := ReadManifest(l.RuntimeDir)
	if err != nil {
		return "", err
	}
	if m.Version == "" {
		return "", fmt.Errorf("manifest at %s has no version", l.ManifestPath())
	}
	return m.Version, nil
}

// Exists reports whether the runtime directory is present at all.
// A missing runtime directory is a fresh install, not corruption.
func (l Layout) Exists() bool {
	info, err := os.Stat(l.RuntimeDir)
	return err == nil && info.IsDir()
}
