package infra

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/shotclip/shotclip/internal/domain"
)

const systemdUnitName = "shotclip.service"

// systemd user unit: Restart=on-failure gives the outer crash supervision,
// the in-process supervisor handles pipeline-level restarts.
const systemdUnitTemplate = `[Unit]
Description=shotclip screenshot-to-clipboard watcher

[Service]
Type=simple
ExecStart={{.ExecutablePath}} run
Restart=on-failure
RestartSec=10

[Install]
WantedBy=default.target
`

// SystemdManager implements domain.ServiceManager for a systemd user unit.
type SystemdManager struct {
	unitDir  string
	unitPath string
}

// NewSystemdManager creates a manager rooted at the user unit directory
// (~/.config/systemd/user).
func NewSystemdManager() *SystemdManager {
	base, _ := os.UserConfigDir()
	dir := filepath.Join(base, "systemd", "user")
	return &SystemdManager{
		unitDir:  dir,
		unitPath: filepath.Join(dir, systemdUnitName),
	}
}

// NewSystemdManagerWithDir creates a manager rooted elsewhere (for testing).
func NewSystemdManagerWithDir(dir string) *SystemdManager {
	return &SystemdManager{
		unitDir:  dir,
		unitPath: filepath.Join(dir, systemdUnitName),
	}
}

func (m *SystemdManager) generateUnit(execPath string) ([]byte, error) {
	tmpl, err := template.New("unit").Parse(systemdUnitTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing unit template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ ExecutablePath string }{execPath}); err != nil {
		return nil, fmt.Errorf("rendering unit: %w", err)
	}
	return buf.Bytes(), nil
}

// Install writes the unit file, reloads the user manager, and enables the
// unit. Idempotent.
func (m *SystemdManager) Install(execPath string) error {
	if err := os.MkdirAll(m.unitDir, 0755); err != nil {
		return err
	}

	content, err := m.generateUnit(execPath)
	if err != nil {
		return err
	}

	if current, err := os.ReadFile(m.unitPath); err != nil || !bytes.Equal(current, content) {
		if err := os.WriteFile(m.unitPath, content, 0644); err != nil {
			return err
		}
		_ = exec.Command("systemctl", "--user", "daemon-reload").Run()
	}

	return exec.Command("systemctl", "--user", "enable", "--now", systemdUnitName).Run()
}

// Uninstall stops and disables the unit and removes the unit file.
func (m *SystemdManager) Uninstall() error {
	_ = exec.Command("systemctl", "--user", "disable", "--now", systemdUnitName).Run()
	err := os.Remove(m.unitPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	_ = exec.Command("systemctl", "--user", "daemon-reload").Run()
	return nil
}

// IsInstalled checks if the unit file is present.
func (m *SystemdManager) IsInstalled() bool {
	_, err := os.Stat(m.unitPath)
	return err == nil
}

// DefinitionPath returns the unit file path.
func (m *SystemdManager) DefinitionPath() string {
	return m.unitPath
}

var _ domain.ServiceManager = (*SystemdManager)(nil)
