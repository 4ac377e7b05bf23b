package update

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// MarkerFileName is the durable transaction marker under the cache
// directory. Its presence means an update did not finish cleanly.
const MarkerFileName = "update.txn.json"

// MarkerStore persists the transaction marker. The marker is written before
// each irreversible step so an interrupted update is diagnosable, and
// removed only once the transaction is durably committed or rolled back.
type MarkerStore struct {
	path string
}

// NewMarkerStore creates a store under cacheDir.
func NewMarkerStore(cacheDir string) *MarkerStore {
	return &MarkerStore{path: filepath.Join(cacheDir, MarkerFileName)}
}

// Write persists the transaction via temp-file-and-rename so the marker
// itself can never be observed half-written.
func (s *MarkerStore) Write(txn *Transaction) error {
	data, err := json.MarshalIndent(txn, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write transaction marker: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to finalize transaction marker: %w", err)
	}
	return nil
}

// Read loads the current marker. Returns os.ErrNotExist (wrapped) when no
// transaction is pending.
func (s *MarkerStore) Read() (*Transaction, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var txn Transaction
	if err := json.Unmarshal(data, &txn); err != nil {
		return nil, fmt.Errorf("failed to parse transaction marker: %w", err)
	}
	return &txn, nil
}

// Exists reports whether a transaction marker is present.
func (s *MarkerStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Clear removes the marker. Clearing an absent marker is a no-op.
func (s *MarkerStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove transaction marker: %w", err)
	}
	return nil
}
