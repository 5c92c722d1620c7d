package infra

import (
	"fmt"
	"runtime"

	"github.com/shotclip/shotclip/internal/domain"
)

// NewServiceManager selects the platform service manager: launchd
// LaunchAgent on macOS, systemd user unit on Linux. Other platforms get a
// stub that reports not-installed and refuses install.
func NewServiceManager() domain.ServiceManager {
	switch runtime.GOOS {
	case "darwin":
		return NewLaunchdManager()
	case "linux":
		return NewSystemdManager()
	default:
		return &unsupportedServiceManager{goos: runtime.GOOS}
	}
}

type unsupportedServiceManager struct {
	goos string
}

func (u *unsupportedServiceManager) Install(string) error {
	return fmt.Errorf("auto-start registration not supported on %s; run 'shotclip run' manually", u.goos)
}

func (u *unsupportedServiceManager) Uninstall() error       { return nil }
func (u *unsupportedServiceManager) IsInstalled() bool      { return false }
func (u *unsupportedServiceManager) DefinitionPath() string { return "" }

var _ domain.ServiceManager = (*unsupportedServiceManager)(nil)
