// Package daemon wires the watch/filter/publish pipeline and supervises its
// lifecycle.
package daemon

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/shotclip/shotclip/internal/config"
	"github.com/shotclip/shotclip/internal/domain"
	"github.com/shotclip/shotclip/internal/filter"
	"github.com/shotclip/shotclip/internal/publish"
	"github.com/shotclip/shotclip/internal/watch"
)

// Pipeline is one watch -> filter -> publish run over a resolved
// configuration. It is single-use: the supervisor builds a fresh one per
// attempt.
type Pipeline struct {
	cfg       *config.Config
	clipboard domain.ClipboardSink
	notifier  domain.NotificationSink
	logger    *zap.Logger
}

// NewPipeline assembles a pipeline from the resolved configuration and the
// platform sinks.
func NewPipeline(cfg *config.Config, clipboard domain.ClipboardSink, notifier domain.NotificationSink, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		clipboard: clipboard,
		notifier:  notifier,
		logger:    logger,
	}
}

// Run blocks until ctx is canceled (returns ctx.Err) or the watch is
// permanently lost (returns *domain.WatchLostError). started is invoked only
// after the directory subscription is established, never for an attempt that
// fails before watching anything.
func (p *Pipeline) Run(ctx context.Context, started func()) error {
	source := watch.NewSource(watch.DefaultSourceConfig(p.cfg.WatchDir), p.logger)

	debouncer, err := filter.NewDebouncer(p.cfg, p.logger)
	if err != nil {
		return err
	}

	publisher := publish.NewPublisher(p.clipboard, p.notifier, p.cfg.Notify, p.logger)

	var wg sync.WaitGroup
	sourceErr := make(chan error, 1)
	sourceDone := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(sourceDone)
		sourceErr <- source.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		// Ends when the source closes its channel; candidates close after
		// in-flight settle timers drain.
		_ = debouncer.Run(ctx, source.Events())
	}()

	// The pipeline is not live until the watch subscription exists: a
	// missing directory keeps the source in its retry loop, and reporting
	// started before then would claim screenshots are being watched when
	// none are.
	if started != nil {
		go func() {
			select {
			case <-source.Ready():
				started()
			case <-sourceDone:
			case <-ctx.Done():
			}
		}()
	}

	// The publisher is the tail of the pipeline; run it here so Run's
	// lifetime matches the pipeline's.
	_ = publisher.Run(ctx, debouncer.Candidates())
	wg.Wait()

	if err := <-sourceErr; err != nil && ctx.Err() == nil {
		return err
	}
	return ctx.Err()
}
