package update

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/devcforge/devc/internal/layout"
	"github.com/devcforge/devc/internal/types"
)

// Recover resolves any transaction left behind by a crashed run. It is
// called before any mutating command executes, while the installation lock
// is held. On return the runtime directory holds a complete installation
// (old or new) unless both copies were damaged out-of-band, which surfaces
// as a consistency error.
func (e *Executor) Recover() error {
	txn, err := e.store.Read()
	if err != nil {
		if os.IsNotExist(err) {
			e.pruneStrayDirs("")
			return nil
		}
		// An unreadable marker cannot name its scratch paths; the cache
		// sweep below still reclaims the space.
		e.logger.Warn("discarding unreadable transaction marker", "err", err)
		_ = e.store.Clear()
		e.pruneStrayDirs("")
		return nil
	}

	e.logger.Info("recovering interrupted update", "id", txn.ID, "phase", txn.Phase)

	switch txn.Phase {
	case types.PhaseDownloading, types.PhaseVerifying:
		// The swap never started: the runtime directory is untouched.
		e.cleanup(txn)

	case types.PhaseSwapping:
		if err := e.resolveSwap(txn); err != nil {
			return err
		}

	case types.PhaseCommitted, types.PhaseRolledBack:
		// Terminal phase reached; only the scratch cleanup was interrupted.
		e.cleanup(txn)

	default:
		e.logger.Warn("unknown transaction phase, discarding", "phase", txn.Phase)
		e.cleanup(txn)
	}

	e.pruneStrayDirs(txn.ID)
	return nil
}

// resolveSwap decides which of runtimeDir/backup holds a healthy
// installation after a crash mid-swap and restores accordingly.
func (e *Executor) resolveSwap(txn *Transaction) error {
	if layout.ValidateTree(e.layout.RuntimeDir).Healthy() {
		// Either both renames completed (runtime holds the new tree) or
		// neither did (runtime still holds the old). Both are fine.
		e.cleanup(txn)
		return nil
	}

	if layout.ValidateTree(txn.BackupPath).Healthy() {
		// Crashed between the renames: the old tree sits in the backup.
		if _, err := os.Stat(e.layout.RuntimeDir); err == nil {
			if err := os.RemoveAll(e.layout.RuntimeDir); err != nil {
				return types.NewError(types.CategoryConsistency,
					fmt.Errorf("failed to clear partial runtime directory: %w", err))
			}
		}
		if err := os.Rename(txn.BackupPath, e.layout.RuntimeDir); err != nil {
			return types.NewError(types.CategoryConsistency,
				fmt.Errorf("failed to restore backup: %w", err))
		}
		e.logger.Info("restored previous installation", "version", txn.SourceVersion)
		e.cleanup(txn)
		return nil
	}

	return types.NewError(types.CategoryConsistency,
		fmt.Errorf("neither %s nor %s holds a complete installation; manual intervention required",
			e.layout.RuntimeDir, txn.BackupPath))
}

// pruneStrayDirs removes transaction-scoped cache directories not owned by
// the current transaction. Cache contents are always safely deletable.
func (e *Executor) pruneStrayDirs(keepID string) {
	entries, err := os.ReadDir(e.layout.CacheDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), txnDirPrefix) {
			continue
		}
		if keepID != "" && entry.Name() == txnDirPrefix+keepID {
			continue
		}
		path := filepath.Join(e.layout.CacheDir, entry.Name())
		e.logger.Debug("pruning stale update artifacts", "path", path)
		_ = os.RemoveAll(path)
	}
}
