// Package lock provides a filesystem mutex guarding the devc installation.
//
// Exactly one process may mutate the runtime directory at a time. The lock
// is a file created with O_EXCL under the cache directory, holding a JSON
// record of the owner. A record whose PID is dead, or whose boot token does
// not match the current machine boot, is stale and reclaimed without waiting
// out the timeout.
package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/devcforge/devc/internal/types"
)

// FileName is the lock file under the cache directory.
const FileName = "devc.lock"

// Record describes the current lock owner.
type Record struct {
	OwnerPID   int       `json:"owner_pid"`
	AcquiredAt time.Time `json:"acquired_at"`
	BootToken  string    `json:"boot_token"`
}

// Manager acquires and releases the installation lock.
type Manager struct {
	path string

	// test seams
	pidAlive  func(int) bool
	bootToken func() string
}

// NewManager creates a Manager whose lock file lives under cacheDir.
func NewManager(cacheDir string) *Manager {
	return &Manager{
		path:      filepath.Join(cacheDir, FileName),
		pidAlive:  processAlive,
		bootToken: currentBootToken,
	}
}

// Handle represents a held lock. Release is idempotent.
type Handle struct {
	m        *Manager
	released bool
}

// Acquire attempts to take the installation lock, polling with backoff until
// timeout. A stale lock is forcibly removed and acquisition retried once.
// On timeout the error names the live owner PID and carries the concurrency
// category.
func (m *Manager) Acquire(timeout time.Duration) (*Handle, error) {
	deadline := time.Now().Add(timeout)
	backoff := 50 * time.Millisecond
	reclaimed := false

	for {
		if err := m.tryCreate(); err == nil {
			return &Handle{m: m}, nil
		} else if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}

		rec, readErr := m.Read()
		// An unreadable record is treated like a stale one: the writer
		// either crashed mid-write or predates this format.
		if !reclaimed && (readErr != nil || m.IsStale(rec)) {
			_ = os.Remove(m.path)
			reclaimed = true
			continue
		}

		if time.Now().After(deadline) {
			if readErr != nil {
				return nil, types.NewError(types.CategoryConcurrency,
					fmt.Errorf("installation is locked by an unknown process"))
			}
			return nil, types.NewError(types.CategoryConcurrency,
				fmt.Errorf("installation is locked by running process %d", rec.OwnerPID))
		}

		time.Sleep(backoff)
		if backoff *= 2; backoff > time.Second {
			backoff = time.Second
		}
	}
}

// tryCreate atomically creates the lock file with this process's record.
// Create-exclusive semantics close the check-then-create race window.
func (m *Manager) tryCreate() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(m.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	rec := Record{
		OwnerPID:   os.Getpid(),
		AcquiredAt: time.Now(),
		BootToken:  m.bootToken(),
	}
	if err := json.NewEncoder(f).Encode(rec); err != nil {
		_ = os.Remove(m.path)
		return fmt.Errorf("failed to write lock record: %w", err)
	}
	return nil
}

// Read parses the current lock record.
func (m *Manager) Read() (Record, error) {
	var rec Record
	data, err := os.ReadFile(m.path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("failed to parse lock record: %w", err)
	}
	if rec.OwnerPID <= 0 {
		return rec, fmt.Errorf("lock record has no owner PID")
	}
	return rec, nil
}

// IsStale reports whether the record's owner can no longer hold the lock:
// its process is gone, or the record was written before the current machine
// boot (so the PID may have been recycled).
func (m *Manager) IsStale(rec Record) bool {
	if current := m.bootToken(); current != "" && rec.BootToken != "" && rec.BootToken != current {
		return true
	}
	return !m.pidAlive(rec.OwnerPID)
}

// Release removes the lock file if this process still owns it. Releasing an
// already-released or foreign lock is a no-op, so cleanup paths can call it
// unconditionally.
func (h *Handle) Release() {
	if h == nil || h.released {
		return
	}
	h.released = true

	rec, err := h.m.Read()
	if err != nil || rec.OwnerPID != os.Getpid() {
		return
	}
	_ = os.Remove(h.m.path)
}

// Path returns the lock file location, for diagnostics.
func (m *Manager) Path() string {
	return m.path
}
