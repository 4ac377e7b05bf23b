package update

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/devcforge/devc/internal/layout"
	"github.com/devcforge/devc/internal/types"
)

// txnDirPrefix scopes per-transaction cache directories so two transactions'
// artifacts can never collide.
const txnDirPrefix = "txn-"

// Executor runs update transactions against an installation layout.
type Executor struct {
	layout layout.Layout
	store  *MarkerStore
	dl     *Downloader
	logger *log.Logger

	// smokeTest verifies a freshly swapped-in binary; replaceable in tests.
	smokeTest func(binary string) error
}

// NewExecutor creates an Executor for the given layout.
func NewExecutor(l layout.Layout, dl *Downloader, logger *log.Logger) *Executor {
	return &Executor{
		layout:    l,
		store:     NewMarkerStore(l.CacheDir),
		dl:        dl,
		logger:    logger,
		smokeTest: runVersionCheck,
	}
}

// runVersionCheck executes the new binary's --version as a smoke test.
func runVersionCheck(binary string) error {
	cmd := exec.Command(binary, "--version")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("smoke test failed: %w (output: %s)", err, out)
	}
	return nil
}

// Plan builds a transaction for the given update. All scratch paths live in
// a transaction-scoped directory under the cache.
func (e *Executor) Plan(info *Info) *Transaction {
	id := time.Now().Format("20060102-150405")
	dir := e.txnDir(id)
	return &Transaction{
		ID:            id,
		SourceVersion: info.CurrentVersion,
		TargetVersion: info.LatestVersion,
		AssetURL:      info.AssetURL,
		ChecksumURL:   info.ChecksumURL,
		DownloadPath:  filepath.Join(dir, DetectPlatform().ArtifactName()),
		StagePath:     filepath.Join(dir, "stage"),
		BackupPath:    filepath.Join(dir, "backup"),
		Phase:         types.PhaseDownloading,
		StartedAt:     time.Now(),
	}
}

func (e *Executor) txnDir(id string) string {
	return filepath.Join(e.layout.CacheDir, txnDirPrefix+id)
}

// Steps returns the planned steps for dry-run output.
func (e *Executor) Steps(txn *Transaction) []string {
	return []string{
		fmt.Sprintf("download %s to %s", txn.AssetURL, txn.DownloadPath),
		fmt.Sprintf("verify SHA256 against %s and unpack to %s", txn.ChecksumURL, txn.StagePath),
		fmt.Sprintf("move current installation %s to %s", e.layout.RuntimeDir, txn.BackupPath),
		fmt.Sprintf("move verified %s tree into %s", txn.TargetVersion, e.layout.RuntimeDir),
		fmt.Sprintf("smoke-test %s --version, then delete backup", e.layout.BinaryPath()),
	}
}

// Execute runs the transaction to completion. Every failure leaves the
// runtime directory either unchanged or fully rolled back; the returned
// error carries the category, failed phase, and runtime state.
func (e *Executor) Execute(txn *Transaction) error {
	// Phase 1: download. No runtime mutation can happen here, so a crash
	// or network failure costs nothing but cache space.
	txn.Phase = types.PhaseDownloading
	if err := e.store.Write(txn); err != nil {
		return err
	}
	e.logger.Info("downloading update", "version", txn.TargetVersion, "url", txn.AssetURL)
	if err := e.dl.Download(txn.AssetURL, txn.DownloadPath); err != nil {
		e.abort(txn)
		return types.NewPhaseError(types.CategoryTransient, types.PhaseDownloading, "unchanged", err)
	}

	// Phase 2: verify. A bad artifact is discarded, never retried.
	txn.Phase = types.PhaseVerifying
	if err := e.store.Write(txn); err != nil {
		return err
	}
	e.logger.Info("verifying artifact", "path", txn.DownloadPath)
	if err := e.verify(txn); err != nil {
		e.abort(txn)
		return types.NewPhaseError(types.CategoryIntegrity, types.PhaseVerifying, "unchanged", err)
	}

	// Phase 3: swap. The marker records the phase before the first rename
	// so a crash between the renames is resolvable by Recover.
	txn.Phase = types.PhaseSwapping
	if err := e.store.Write(txn); err != nil {
		return err
	}
	e.logger.Info("swapping installation", "from", txn.SourceVersion, "to", txn.TargetVersion)
	if err := os.Rename(e.layout.RuntimeDir, txn.BackupPath); err != nil {
		e.abort(txn)
		return types.NewPhaseError(types.CategoryConsistency, types.PhaseSwapping, "unchanged",
			fmt.Errorf("failed to move current installation aside: %w", err))
	}
	if err := os.Rename(txn.StagePath, e.layout.RuntimeDir); err != nil {
		// First rename succeeded, second failed: put the old tree back.
		restoreErr := os.Rename(txn.BackupPath, e.layout.RuntimeDir)
		e.abort(txn)
		if restoreErr != nil {
			return types.NewPhaseError(types.CategoryConsistency, types.PhaseSwapping, "backup not restored, run devc doctor",
				fmt.Errorf("failed to install new tree: %v; restore failed: %w", err, restoreErr))
		}
		return types.NewPhaseError(types.CategoryConsistency, types.PhaseSwapping, "unchanged",
			fmt.Errorf("failed to install new tree: %w", err))
	}

	// Phase 4: smoke test, then commit or roll back.
	if err := e.smokeTest(e.layout.BinaryPath()); err != nil {
		e.logger.Warn("smoke test failed, rolling back", "err", err)
		if rbErr := e.rollback(txn); rbErr != nil {
			return types.NewPhaseError(types.CategoryConsistency, types.PhaseSwapping, "rollback failed, run devc doctor",
				fmt.Errorf("smoke test failed: %v; rollback failed: %w", err, rbErr))
		}
		return types.NewPhaseError(types.CategoryIntegrity, types.PhaseRolledBack,
			fmt.Sprintf("rolled back to %s", txn.SourceVersion), err)
	}

	txn.Phase = types.PhaseCommitted
	if err := e.store.Write(txn); err != nil {
		return err
	}
	e.cleanup(txn)
	e.logger.Info("update committed", "version", txn.TargetVersion)
	return nil
}

// verify checks the artifact hash and unpacks it into the stage directory,
// then validates the staged tree is a complete installation of the target
// version.
func (e *Executor) verify(txn *Transaction) error {
	if err := e.dl.VerifyChecksum(txn.DownloadPath, txn.ChecksumURL); err != nil {
		return err
	}
	if err := Extract(txn.DownloadPath, txn.StagePath); err != nil {
		return err
	}

	report := layout.ValidateTree(txn.StagePath)
	if !report.Healthy() {
		return fmt.Errorf("staged tree is incomplete: %+v", report.Problems())
	}

	m, err := layout.ReadManifest(txn.StagePath)
	if err != nil {
		return err
	}
	if NormalizeVersion(m.Version) != NormalizeVersion(txn.TargetVersion) {
		return fmt.Errorf("staged tree is version %s, expected %s", m.Version, txn.TargetVersion)
	}
	return nil
}

// rollback restores the backup after a failed smoke test. The bad tree is
// parked outside the transaction directory so it survives cleanup and can
// be inspected.
func (e *Executor) rollback(txn *Transaction) error {
	rejected := filepath.Join(e.layout.CacheDir, "rejected-"+txn.ID)
	if err := os.Rename(e.layout.RuntimeDir, rejected); err != nil {
		return fmt.Errorf("failed to move rejected tree aside: %w", err)
	}
	e.logger.Warn("rejected tree kept for inspection", "dir", rejected)
	if err := os.Rename(txn.BackupPath, e.layout.RuntimeDir); err != nil {
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	txn.Phase = types.PhaseRolledBack
	if err := e.store.Write(txn); err != nil {
		return err
	}
	e.cleanup(txn)
	return nil
}

// abort discards a transaction that never touched the runtime directory.
func (e *Executor) abort(txn *Transaction) {
	e.cleanup(txn)
}

// cleanup removes the transaction's cache directory and the marker.
func (e *Executor) cleanup(txn *Transaction) {
	_ = os.RemoveAll(e.txnDir(txn.ID))
	_ = e.store.Clear()
}
