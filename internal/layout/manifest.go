package layout

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Manifest records what a complete installation of a given version contains.
// It lives inside the directory it describes, so a staged tree in the cache
// carries its own manifest and stays self-describing through the swap.
type Manifest struct {
	Version string   `toml:"version"`
	Schema  int      `toml:"schema"`
	Files   []string `toml:"files"` // paths relative to the directory root
}

// ReadManifest loads and parses the manifest inside dir.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// WriteManifest writes the manifest into dir atomically: the content lands
// in a temp file first and is renamed into place, so a crash never leaves a
// half-written manifest.
func WriteManifest(dir string, m *Manifest) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	path := filepath.Join(dir, ManifestFileName)
	tmp := path + PartialSuffix
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to finalize manifest: %w", err)
	}
	return nil
}
