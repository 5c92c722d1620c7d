package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shotclip/shotclip/internal/domain"
)

// FileRegistry implements domain.StateRegistry using a JSON state file.
// Writes are atomic (temp file + rename) and read-modify-write cycles are
// guarded by an advisory file lock so the daemon and a concurrent status
// command cannot interleave.
type FileRegistry struct {
	path string
}

// NewFileRegistry creates the registry at the platform state location
// (user cache dir, falling back to the temp dir).
func NewFileRegistry() *FileRegistry {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return &FileRegistry{path: filepath.Join(base, "shotclip", "state.json")}
}

// NewFileRegistryWithPath creates a registry at a specific path (for testing).
func NewFileRegistryWithPath(path string) *FileRegistry {
	return &FileRegistry{path: path}
}

// Path returns the state file path.
func (r *FileRegistry) Path() string {
	return r.path
}

// Save replaces the stored entry.
func (r *FileRegistry) Save(entry domain.StateEntry) error {
	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if entry.Version == 0 {
		entry.Version = 1
	}
	entry.LastHeartbeat = time.Now().Unix()
	return r.atomicWrite(&entry)
}

// SetState updates the lifecycle state and last error on the stored entry.
// A missing entry is created so the first transition still lands.
func (r *FileRegistry) SetState(state domain.ServiceState, lastErr string) error {
	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()

	entry, err := r.read()
	if err != nil {
		return err
	}
	if entry == nil {
		entry = &domain.StateEntry{Version: 1, PID: os.Getpid()}
	}
	entry.State = state
	entry.LastError = lastErr
	entry.LastHeartbeat = time.Now().Unix()
	return r.atomicWrite(entry)
}

// Heartbeat refreshes the liveness timestamp.
func (r *FileRegistry) Heartbeat() error {
	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()

	entry, err := r.read()
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("no state entry to heartbeat")
	}
	entry.LastHeartbeat = time.Now().Unix()
	return r.atomicWrite(entry)
}

// Load returns the stored entry, or nil if none exists.
func (r *FileRegistry) Load() (*domain.StateEntry, error) {
	return r.read()
}

// Clear removes the state file.
func (r *FileRegistry) Clear() error {
	err := os.Remove(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (r *FileRegistry) read() (*domain.StateEntry, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entry domain.StateEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// lock takes an advisory lock on a sibling lock file and returns the release
// func. Locking is best effort on platforms without flock.
func (r *FileRegistry) lock() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}
	return lockFile(r.path + ".lock")
}

// atomicWrite writes the entry atomically (temp file + rename).
func (r *FileRegistry) atomicWrite(entry *domain.StateEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	// Unique per process to avoid a race on the temp name.
	tmpPath := fmt.Sprintf("%s.%d.tmp", r.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

var _ domain.StateRegistry = (*FileRegistry)(nil)
