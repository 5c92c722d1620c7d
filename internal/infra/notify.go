package infra

import (
	"github.com/gen2brain/beeep"

	"github.com/shotclip/shotclip/internal/domain"
)

// DesktopNotifier implements domain.NotificationSink via beeep, which maps
// to the native mechanism on each platform (Notification Center, libnotify,
// toast).
type DesktopNotifier struct {
	sound bool
}

// NewDesktopNotifier creates the desktop notification sink.
func NewDesktopNotifier(sound bool) *DesktopNotifier {
	return &DesktopNotifier{sound: sound}
}

// Notify raises a transient desktop notification. Callers treat failures as
// ignorable; a headless session simply has no notification subsystem.
func (n *DesktopNotifier) Notify(title, message string) error {
	if n.sound {
		return beeep.Alert(title, message, "")
	}
	return beeep.Notify(title, message, "")
}

var _ domain.NotificationSink = (*DesktopNotifier)(nil)
