// Package publish performs the single externally visible side effect:
// writing a candidate file's absolute path to the OS clipboard and raising a
// desktop notification.
package publish

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/shotclip/shotclip/internal/domain"
)

// clipboardTimeout bounds a single clipboard write. Another process holding a
// clipboard lock must not stall the pipeline; expiry counts as a failed
// publish.
const clipboardTimeout = 2 * time.Second

// Publisher consumes candidates sequentially. The clipboard is one shared
// last-writer-wins OS resource, so there is nothing to gain from parallelism.
type Publisher struct {
	clipboard domain.ClipboardSink
	notifier  domain.NotificationSink
	notify    bool
	logger    *zap.Logger
}

// NewPublisher creates a publisher. notifier may be nil when notifications
// are disabled.
func NewPublisher(clipboard domain.ClipboardSink, notifier domain.NotificationSink, notify bool, logger *zap.Logger) *Publisher {
	return &Publisher{
		clipboard: clipboard,
		notifier:  notifier,
		notify:    notify,
		logger:    logger,
	}
}

// Run consumes candidates until the channel closes or ctx is canceled.
// Publish failures are logged and never abort the loop: a missed copy for
// one screenshot must not take down handling of the next.
func (p *Publisher) Run(ctx context.Context, candidates <-chan domain.CandidateFile) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-candidates:
			if !ok {
				return nil
			}
			res := p.Publish(ctx, c)
			if res.Succeeded {
				p.logger.Info("path copied to clipboard", zap.String("path", res.Path))
			} else {
				p.logger.Warn("publish failed",
					zap.String("path", res.Path),
					zap.String("error", res.Error))
			}
		}
	}
}

// Publish writes the candidate's absolute path to the clipboard and raises
// the notification. Publishing the same candidate twice just overwrites the
// clipboard with the same value, a safe no-op.
func (p *Publisher) Publish(ctx context.Context, c domain.CandidateFile) domain.PublishResult {
	writeCtx, cancel := context.WithTimeout(ctx, clipboardTimeout)
	defer cancel()

	if err := p.clipboard.Write(writeCtx, c.Path); err != nil {
		return domain.PublishResult{Path: c.Path, Succeeded: false, Error: err.Error()}
	}

	if p.notify && p.notifier != nil {
		if err := p.notifier.Notify("Path copied", filepath.Base(c.Path)); err != nil {
			// Headless session or missing notification subsystem: the copy
			// itself already succeeded, so log and move on.
			p.logger.Debug("notification failed", zap.String("path", c.Path), zap.Error(err))
		}
	}

	return domain.PublishResult{Path: c.Path, Succeeded: true}
}
