package domain

import "context"

// WatchSource produces the raw FileEvent stream for one directory.
// Implementation: fsnotify, with resubscribe-on-loss backoff.
type WatchSource interface {
	// Events returns the event channel. Closed when Run returns.
	Events() <-chan FileEvent

	// Ready is closed once the OS subscription is first established.
	// Callers must not consider the watcher initialized before then.
	Ready() <-chan struct{}

	// Run blocks, feeding Events until ctx is canceled or the watch is
	// permanently lost (*WatchLostError). Not restartable.
	Run(ctx context.Context) error
}

// ClipboardSink writes plain text to the OS general-purpose clipboard.
// The clipboard is write-only from this system's perspective.
type ClipboardSink interface {
	// Write replaces the clipboard text content. Must respect ctx deadlines;
	// a wedged clipboard owner must not stall the caller indefinitely.
	Write(ctx context.Context, text string) error
}

// NotificationSink raises a best-effort desktop notification.
// Absence of a notification subsystem degrades to log-only, never an error
// the caller needs to act on.
type NotificationSink interface {
	Notify(title, message string) error
}

// StateRegistry persists the supervisor's StateEntry across processes.
// Implementation: JSON file, atomic write, flock around read-modify-write.
type StateRegistry interface {
	// Save replaces the stored entry.
	Save(entry StateEntry) error

	// SetState updates only the lifecycle state (and last error, which may
	// be empty to clear it) on the stored entry.
	SetState(state ServiceState, lastErr string) error

	// Heartbeat refreshes the liveness timestamp.
	Heartbeat() error

	// Load returns the stored entry, or nil if none exists.
	Load() (*StateEntry, error)

	// Clear removes the state file.
	Clear() error

	// Path returns the state file location (for status output and tests).
	Path() string
}

// ProcessManager answers process liveness questions.
// Implementation: gopsutil.
type ProcessManager interface {
	// IsRunning reports whether a PID exists and is running.
	IsRunning(pid int) bool

	// FindByName returns PIDs of processes whose name matches (case-insensitive).
	FindByName(pattern string) ([]int, error)

	// CurrentPID returns the calling process PID.
	CurrentPID() int
}

// ServiceManager registers the daemon with the OS service manager for
// auto-start on login. launchd LaunchAgent on macOS, systemd user unit on
// Linux.
type ServiceManager interface {
	// Install writes the service definition for execPath and enables it.
	// Idempotent.
	Install(execPath string) error

	// Uninstall disables and removes the service definition. Idempotent.
	Uninstall() error

	// IsInstalled reports whether the service definition is present.
	IsInstalled() bool

	// DefinitionPath returns the plist/unit file path.
	DefinitionPath() string
}
