package domain

import "fmt"

// ConfigurationError is fatal at start-up: the daemon must not enter Running.
// The supervisor retries with backoff in case the condition is transient
// (e.g. home directory on a not-yet-mounted volume right after login).
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration: %s: %v", e.Reason, e.Err)
	}
	return "configuration: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// WatchLostError is surfaced by the directory watcher after its retry budget
// for re-establishing the OS subscription is exhausted. The supervisor
// restarts the whole pipeline after a cooldown.
type WatchLostError struct {
	Dir      string
	Attempts int
	Err      error
}

func (e *WatchLostError) Error() string {
	return fmt.Sprintf("watch lost on %s after %d attempts: %v", e.Dir, e.Attempts, e.Err)
}

func (e *WatchLostError) Unwrap() error { return e.Err }
