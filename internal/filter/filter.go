// Package filter turns the noisy raw event stream into a clean stream of
// exactly one CandidateFile per completed file.
package filter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/shotclip/shotclip/internal/config"
	"github.com/shotclip/shotclip/internal/domain"
)

// dedupSize bounds the emitted-paths set so a long-lived process cannot grow
// without limit. Least-recently-used paths are evicted first.
const dedupSize = 10000

// Debouncer consumes FileEvents and emits CandidateFiles after extension
// matching, an existence check, a settle delay, and per-process dedup.
//
// Different paths settle concurrently (one goroutine per in-flight path);
// events for the same path are collapsed into the already-running settle
// loop, so a single path is never emitted out of order with itself.
type Debouncer struct {
	cfg    *config.Config
	logger *zap.Logger
	out    chan domain.CandidateFile

	mu       sync.Mutex
	inflight map[string]struct{}
	emitted  *lru.Cache[string, struct{}]
	wg       sync.WaitGroup
}

// NewDebouncer creates a debouncer bound to the resolved configuration.
func NewDebouncer(cfg *config.Config, logger *zap.Logger) (*Debouncer, error) {
	emitted, err := lru.New[string, struct{}](dedupSize)
	if err != nil {
		return nil, err
	}
	return &Debouncer{
		cfg:      cfg,
		logger:   logger,
		out:      make(chan domain.CandidateFile, 16),
		inflight: make(map[string]struct{}),
		emitted:  emitted,
	}, nil
}

// Candidates returns the outgoing channel. Closed when Run returns.
func (d *Debouncer) Candidates() <-chan domain.CandidateFile {
	return d.out
}

// Run consumes events until the channel closes or ctx is canceled, then
// waits for in-flight settle timers before closing Candidates.
func (d *Debouncer) Run(ctx context.Context, events <-chan domain.FileEvent) error {
	defer func() {
		d.wg.Wait()
		close(d.out)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			d.handle(ctx, ev)
		}
	}
}

// handle applies the cheap synchronous checks and spawns a settle goroutine
// for paths that pass them.
func (d *Debouncer) handle(ctx context.Context, ev domain.FileEvent) {
	if ev.Kind == domain.EventOther {
		// Writes to an in-flight path are observed by its settle loop via
		// stat; they carry no new information here.
		return
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(ev.Path)), ".")
	if !d.cfg.Recognizes(ext) {
		return
	}

	d.mu.Lock()
	if _, ok := d.emitted.Get(ev.Path); ok {
		d.mu.Unlock()
		return
	}
	if _, ok := d.inflight[ev.Path]; ok {
		d.mu.Unlock()
		return
	}
	d.inflight[ev.Path] = struct{}{}
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			d.mu.Lock()
			delete(d.inflight, ev.Path)
			d.mu.Unlock()
		}()
		d.settle(ctx, ev.Path, ext)
	}()
}

// settle waits until the file's size and mtime have been stable for a full
// settle window, then emits it. Still-growing files restart the window.
func (d *Debouncer) settle(ctx context.Context, path, ext string) {
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			d.logger.Warn("dropping path, stat failed", zap.String("path", path), zap.Error(err))
		}
		// Create-then-delete races (editor temp files) are expected noise.
		return
	}

	size, mtime := info.Size(), info.ModTime()
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.cfg.SettleDelay):
		}

		info, err = os.Stat(path)
		if err != nil {
			if !os.IsNotExist(err) {
				d.logger.Warn("dropping path, stat failed mid-settle",
					zap.String("path", path), zap.Error(err))
			}
			return
		}
		if info.Size() == size && info.ModTime().Equal(mtime) {
			break
		}
		// Still being written; arm the window again from the new state.
		size, mtime = info.Size(), info.ModTime()
	}

	// Check-and-insert under one lock so two near-simultaneous settles for
	// the same path cannot both emit.
	d.mu.Lock()
	if _, dup := d.emitted.Get(path); dup {
		d.mu.Unlock()
		return
	}
	d.emitted.Add(path, struct{}{})
	d.mu.Unlock()

	select {
	case d.out <- domain.CandidateFile{Path: path, Extension: ext}:
	case <-ctx.Done():
	}
}
