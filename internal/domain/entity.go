// Package domain contains core entities and interfaces.
// This is the innermost layer - no external dependencies.
package domain

import "time"

// EventKind classifies a raw file-system notification.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventRenamed EventKind = "renamed"
	EventOther   EventKind = "other"
)

// FileEvent is one raw file-system notification, normalized away from the
// underlying OS watch primitive. Transient: consumed by the filter and
// discarded.
type FileEvent struct {
	Path       string
	Kind       EventKind
	ObservedAt time.Time
}

// CandidateFile is a completed, recognized file that passed filtering and the
// settle delay. Emitted at most once per distinct path per process lifetime.
type CandidateFile struct {
	Path      string
	Extension string
}

// PublishResult records the outcome of one clipboard publish attempt.
// Used for logging and tests only; never retained.
type PublishResult struct {
	Path      string
	Succeeded bool
	Error     string
}

// ServiceState is the supervisor-owned process lifecycle state.
type ServiceState string

const (
	StateStopped      ServiceState = "stopped"
	StateStarting     ServiceState = "starting"
	StateRunning      ServiceState = "running"
	StateStopping     ServiceState = "stopping"
	StateCrashBackoff ServiceState = "crash-backoff"
)

// StateEntry is the cross-process view of the daemon, persisted to the state
// file so the status command works from a separate process.
type StateEntry struct {
	Version       int          `json:"version"`
	PID           int          `json:"pid"`
	State         ServiceState `json:"state"`
	WatchDir      string       `json:"watch_dir,omitempty"`
	LastError     string       `json:"last_error,omitempty"`
	LastHeartbeat int64        `json:"last_heartbeat"`
	AppVersion    string       `json:"app_version,omitempty"`
}
