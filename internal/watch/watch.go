// Package watch maintains the OS file-system subscription on the watch
// directory and translates raw notifications into domain.FileEvent values.
package watch

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/shotclip/shotclip/internal/domain"
)

// SourceConfig holds watcher tuning knobs.
type SourceConfig struct {
	Dir            string
	InitialBackoff time.Duration // first resubscribe delay (default 500ms)
	MaxBackoff     time.Duration // backoff cap (default 30s)
	MaxRetries     int           // consecutive failed resubscribes before giving up (default 10)
	ProbeInterval  time.Duration // how often to stat the dir for silent watch loss (default 2s)
	BufferSize     int           // event channel capacity (default 64)
}

// DefaultSourceConfig returns default watcher configuration for dir.
func DefaultSourceConfig(dir string) SourceConfig {
	return SourceConfig{
		Dir:            dir,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		MaxRetries:     10,
		ProbeInterval:  2 * time.Second,
		BufferSize:     64,
	}
}

// Source is the fsnotify-backed domain.WatchSource.
// If the directory disappears (sync tools remove and recreate it), the
// subscription is re-established with exponential backoff rather than
// terminating the process.
type Source struct {
	config SourceConfig
	logger *zap.Logger
	events chan domain.FileEvent

	ready     chan struct{}
	readyOnce sync.Once
}

// NewSource creates a watch source for the configured directory.
func NewSource(config SourceConfig, logger *zap.Logger) *Source {
	if config.BufferSize <= 0 {
		config.BufferSize = 64
	}
	return &Source{
		config: config,
		logger: logger,
		events: make(chan domain.FileEvent, config.BufferSize),
		ready:  make(chan struct{}),
	}
}

// Events returns the outgoing event channel. Closed when Run returns.
func (s *Source) Events() <-chan domain.FileEvent {
	return s.events
}

// Ready is closed once the first subscription on the directory is
// established. Until then the source is still starting up, not watching.
func (s *Source) Ready() <-chan struct{} {
	return s.ready
}

// Run blocks feeding Events until ctx is canceled or the watch is permanently
// lost, in which case it returns *domain.WatchLostError.
func (s *Source) Run(ctx context.Context) error {
	defer close(s.events)

	backoff := s.config.InitialBackoff
	failures := 0

	for {
		w, err := s.subscribe()
		if err != nil {
			failures++
			if failures >= s.config.MaxRetries {
				return &domain.WatchLostError{Dir: s.config.Dir, Attempts: failures, Err: err}
			}
			s.logger.Warn("watch subscription failed, retrying",
				zap.String("dir", s.config.Dir),
				zap.Int("attempt", failures),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, s.config.MaxBackoff)
			continue
		}

		// Subscription established: reset the retry budget.
		failures = 0
		backoff = s.config.InitialBackoff
		s.readyOnce.Do(func() { close(s.ready) })
		s.logger.Info("watching directory", zap.String("dir", s.config.Dir))

		err = s.pump(ctx, w)
		w.Close()
		if err == nil {
			// Watch lost, not canceled. Loop around and resubscribe.
			s.logger.Warn("watch lost, resubscribing", zap.String("dir", s.config.Dir))
			continue
		}
		return err
	}
}

// subscribe creates the fsnotify watcher and registers the directory.
func (s *Source) subscribe() (*fsnotify.Watcher, error) {
	if _, err := os.Stat(s.config.Dir); err != nil {
		return nil, fmt.Errorf("stat watch dir: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(s.config.Dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("adding watch on %s: %w", s.config.Dir, err)
	}
	return w, nil
}

// pump forwards events until cancellation (returns ctx.Err) or watch loss
// (returns nil so the caller resubscribes).
func (s *Source) pump(ctx context.Context, w *fsnotify.Watcher) error {
	probe := time.NewTicker(s.config.ProbeInterval)
	defer probe.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name == s.config.Dir && ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				// The watched directory itself went away.
				return nil
			}
			fe := translate(ev)
			if fe == nil {
				continue
			}
			select {
			case s.events <- *fe:
			case <-ctx.Done():
				return ctx.Err()
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watch error", zap.String("dir", s.config.Dir), zap.Error(err))

		case <-probe.C:
			// Some platforms drop the inotify-equivalent silently when the
			// directory is replaced. Stat it so the loss is noticed.
			if _, err := os.Stat(s.config.Dir); err != nil {
				return nil
			}
		}
	}
}

// translate maps an fsnotify event to a FileEvent, or nil for noise the
// filter never needs to see (chmod, removal of other files).
func translate(ev fsnotify.Event) *domain.FileEvent {
	var kind domain.EventKind
	switch {
	case ev.Op&fsnotify.Create != 0:
		kind = domain.EventCreated
	case ev.Op&fsnotify.Rename != 0:
		kind = domain.EventRenamed
	case ev.Op&fsnotify.Write != 0:
		kind = domain.EventOther
	default:
		return nil
	}
	return &domain.FileEvent{
		Path:       ev.Name,
		Kind:       kind,
		ObservedAt: time.Now(),
	}
}

var _ domain.WatchSource = (*Source)(nil)
