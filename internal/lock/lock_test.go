package lock

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/devcforge/devc/internal/types"
)

func writeRecord(t *testing.T, path string, rec Record) {
	t.Helper()
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Failed to marshal record: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write lock file: %v", err)
	}
}

func TestAcquireRelease(t *testing.T) {
	m := NewManager(t.TempDir())

	h, err := m.Acquire(time.Second)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	rec, err := m.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if rec.OwnerPID != os.Getpid() {
		t.Errorf("OwnerPID = %d, want %d", rec.OwnerPID, os.Getpid())
	}
	if rec.AcquiredAt.IsZero() {
		t.Error("AcquiredAt not recorded")
	}

	h.Release()
	if _, err := os.Stat(m.Path()); !os.IsNotExist(err) {
		t.Error("Lock file should be removed after Release")
	}
}

func TestRelease_Idempotent(t *testing.T) {
	m := NewManager(t.TempDir())

	h, err := m.Acquire(time.Second)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	h.Release()
	h.Release() // second call must be a no-op, not a panic or error

	var nilHandle *Handle
	nilHandle.Release() // nil-safe for unconditional cleanup paths
}

func TestRelease_ForeignLockIsNoOp(t *testing.T) {
	m := NewManager(t.TempDir())

	h, err := m.Acquire(time.Second)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// Another process replaced the lock after ours was reclaimed.
	writeRecord(t, m.Path(), Record{OwnerPID: os.Getpid() + 1, AcquiredAt: time.Now(), BootToken: m.bootToken()})

	h.Release()
	if _, err := os.Stat(m.Path()); err != nil {
		t.Error("Foreign lock must not be removed by Release")
	}
}

func TestAcquire_BusyNamesOwner(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	// The owning PID is this test process, which is definitely alive.
	writeRecord(t, filepath.Join(dir, FileName), Record{
		OwnerPID:   os.Getpid(),
		AcquiredAt: time.Now(),
		BootToken:  m.bootToken(),
	})

	start := time.Now()
	_, err := m.Acquire(200 * time.Millisecond)
	if err == nil {
		t.Fatal("Expected busy error")
	}
	if time.Since(start) < 200*time.Millisecond {
		t.Error("Acquire returned before the timeout elapsed")
	}

	var te *types.Error
	if !errors.As(err, &te) || te.Category != types.CategoryConcurrency {
		t.Errorf("Expected concurrency category, got %v", err)
	}
	if !strings.Contains(err.Error(), strconv.Itoa(os.Getpid())) {
		t.Errorf("Busy error %q should name the owner PID", err)
	}
}

func TestAcquire_BusyWithUnreadableRecord(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	// A directory in the lock file's place keeps tryCreate failing with
	// EEXIST while the record stays unreadable and unremovable.
	if err := os.MkdirAll(filepath.Join(dir, FileName, "occupied"), 0755); err != nil {
		t.Fatal(err)
	}

	_, err := m.Acquire(150 * time.Millisecond)
	if err == nil {
		t.Fatal("Expected busy error")
	}

	var te *types.Error
	if !errors.As(err, &te) || te.Category != types.CategoryConcurrency {
		t.Errorf("Expected concurrency category, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknown process") {
		t.Errorf("Busy error %q should report an unknown owner", err)
	}
	if strings.Contains(err.Error(), "process 0") {
		t.Errorf("Busy error %q must not name PID 0", err)
	}
}

func TestAcquire_ReclaimsDeadPID(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	m.pidAlive = func(int) bool { return false }
	writeRecord(t, filepath.Join(dir, FileName), Record{
		OwnerPID:   999999,
		AcquiredAt: time.Now().Add(-time.Hour),
		BootToken:  m.bootToken(),
	})

	start := time.Now()
	h, err := m.Acquire(5 * time.Second)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer h.Release()

	// Stale reclamation must not wait out the timeout.
	if time.Since(start) > time.Second {
		t.Error("Stale lock reclamation took too long")
	}
}

func TestAcquire_ReclaimsAfterReboot(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	m.bootToken = func() string { return "boot-b" }
	// Owner PID is alive (it is us), but the record predates this boot.
	writeRecord(t, filepath.Join(dir, FileName), Record{
		OwnerPID:   os.Getpid(),
		AcquiredAt: time.Now().Add(-time.Hour),
		BootToken:  "boot-a",
	})

	h, err := m.Acquire(5 * time.Second)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	h.Release()
}

func TestAcquire_ReclaimsCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}

	h, err := m.Acquire(5 * time.Second)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	h.Release()
}

func TestIsStale(t *testing.T) {
	m := NewManager(t.TempDir())
	m.bootToken = func() string { return "boot-b" }

	tests := []struct {
		name  string
		alive bool
		rec   Record
		want  bool
	}{
		{"live owner, same boot", true, Record{OwnerPID: 123, BootToken: "boot-b"}, false},
		{"dead owner", false, Record{OwnerPID: 123, BootToken: "boot-b"}, true},
		{"live PID from previous boot", true, Record{OwnerPID: 123, BootToken: "boot-a"}, true},
		{"record without boot token, live owner", true, Record{OwnerPID: 123}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.pidAlive = func(int) bool { return tt.alive }
			if got := m.IsStale(tt.rec); got != tt.want {
				t.Errorf("IsStale(%+v) = %v, want %v", tt.rec, got, tt.want)
			}
		})
	}
}

func TestProcessAlive(t *testing.T) {
	if !processAlive(os.Getpid()) {
		t.Error("Current process should be alive")
	}
	if processAlive(0) || processAlive(-1) {
		t.Error("Non-positive PIDs are never alive")
	}
}
