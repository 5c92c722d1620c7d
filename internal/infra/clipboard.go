package infra

import (
	"context"

	"github.com/atotto/clipboard"

	"github.com/shotclip/shotclip/internal/domain"
)

// SystemClipboard implements domain.ClipboardSink via atotto/clipboard,
// which shells out to the platform tool (pbcopy, xclip/xsel, win32).
type SystemClipboard struct{}

// NewSystemClipboard creates the OS clipboard sink.
func NewSystemClipboard() *SystemClipboard {
	return &SystemClipboard{}
}

// Write replaces the clipboard text content with text. The underlying
// library can block while another process holds the clipboard, so the write
// runs in a goroutine and the context deadline wins.
func (s *SystemClipboard) Write(ctx context.Context, text string) error {
	done := make(chan error, 1)
	go func() {
		done <- clipboard.WriteAll(text)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ domain.ClipboardSink = (*SystemClipboard)(nil)
