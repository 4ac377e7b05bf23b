// Package update implements devc's self-update subsystem: release checking,
// artifact download and verification, and the transactional swap that
// replaces the runtime directory without ever leaving it in a partial state.
package update

import (
	"time"

	"github.com/devcforge/devc/internal/types"
)

// Info describes an available update.
type Info struct {
	Available      bool   `json:"available" yaml:"available"`
	CurrentVersion string `json:"current_version" yaml:"current_version"`
	LatestVersion  string `json:"latest_version" yaml:"latest_version"`
	ReleaseURL     string `json:"release_url,omitempty" yaml:"release_url,omitempty"`
	ReleaseNotes   string `json:"-" yaml:"-"`
	AssetURL       string `json:"-" yaml:"-"`
	ChecksumURL    string `json:"-" yaml:"-"`
}

// Transaction is an in-progress or completed update. Its phase is recorded
// on disk before each irreversible step so a crash can be resolved
// deterministically by Recover on the next invocation.
type Transaction struct {
	ID            string      `json:"id"`
	SourceVersion string      `json:"source_version"`
	TargetVersion string      `json:"target_version"`
	AssetURL      string      `json:"asset_url"`
	ChecksumURL   string      `json:"checksum_url"`
	DownloadPath  string      `json:"download_path"`
	StagePath     string      `json:"stage_path"`
	BackupPath    string      `json:"backup_path"`
	Phase         types.Phase `json:"phase"`
	StartedAt     time.Time   `json:"started_at"`
}

// Checker checks for available updates.
type Checker interface {
	Check(targetVersion string) (*Info, error)
}
