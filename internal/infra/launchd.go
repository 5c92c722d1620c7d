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

// launchdLabel identifies the LaunchAgent.
const launchdLabel = "io.shotclip.agent"

// LaunchAgent plist template (runs as the logged-in user).
const launchAgentTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>

    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
        <string>run</string>
    </array>

    <key>RunAtLoad</key>
    <true/>

    <key>KeepAlive</key>
    <dict>
        <key>Crashed</key>
        <true/>
    </dict>

    <key>StandardOutPath</key>
    <string>{{.LogPath}}</string>

    <key>StandardErrorPath</key>
    <string>{{.ErrorLogPath}}</string>

    <key>ProcessType</key>
    <string>Background</string>

    <key>ThrottleInterval</key>
    <integer>10</integer>
</dict>
</plist>`

type plistConfig struct {
	Label          string
	ExecutablePath string
	LogPath        string
	ErrorLogPath   string
}

// LaunchdManager implements domain.ServiceManager for macOS launchd.
type LaunchdManager struct {
	plistDir  string
	plistPath string
	logDir    string
}

// NewLaunchdManager creates a LaunchAgent manager rooted at the user's
// Library/LaunchAgents.
func NewLaunchdManager() *LaunchdManager {
	home, _ := os.UserHomeDir()
	dir := filepath.Join(home, "Library", "LaunchAgents")
	return &LaunchdManager{
		plistDir:  dir,
		plistPath: filepath.Join(dir, launchdLabel+".plist"),
		logDir:    "/var/tmp",
	}
}

// NewLaunchdManagerWithDir creates a manager rooted elsewhere (for testing).
func NewLaunchdManagerWithDir(dir string) *LaunchdManager {
	return &LaunchdManager{
		plistDir:  dir,
		plistPath: filepath.Join(dir, launchdLabel+".plist"),
		logDir:    dir,
	}
}

// generatePlist renders the plist content for the given exec path.
func (m *LaunchdManager) generatePlist(execPath string) ([]byte, error) {
	tmpl, err := template.New("plist").Parse(launchAgentTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing plist template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, plistConfig{
		Label:          launchdLabel,
		ExecutablePath: execPath,
		LogPath:        filepath.Join(m.logDir, "shotclip.log"),
		ErrorLogPath:   filepath.Join(m.logDir, "shotclip.error.log"),
	})
	if err != nil {
		return nil, fmt.Errorf("rendering plist: %w", err)
	}
	return buf.Bytes(), nil
}

// Install writes and loads the plist. Re-installing over an identical plist
// is a no-op; a changed binary path rewrites and reloads it.
func (m *LaunchdManager) Install(execPath string) error {
	if err := os.MkdirAll(m.plistDir, 0755); err != nil {
		return err
	}

	content, err := m.generatePlist(execPath)
	if err != nil {
		return err
	}

	if current, err := os.ReadFile(m.plistPath); err == nil && bytes.Equal(current, content) {
		return nil
	}

	// launchctl refuses to load an already-loaded label; unload first.
	_ = m.unload()
	if err := os.WriteFile(m.plistPath, content, 0644); err != nil {
		return err
	}
	return m.load()
}

// Uninstall unloads and removes the plist.
func (m *LaunchdManager) Uninstall() error {
	_ = m.unload()
	err := os.Remove(m.plistPath)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// IsInstalled checks if the plist is present.
func (m *LaunchdManager) IsInstalled() bool {
	_, err := os.Stat(m.plistPath)
	return err == nil
}

// DefinitionPath returns the plist file path.
func (m *LaunchdManager) DefinitionPath() string {
	return m.plistPath
}

// load loads the plist using launchctl.
// `launchctl load` is deprecated but still works; `bootstrap gui/<uid>` is
// the modern form but `load` is sufficient here.
func (m *LaunchdManager) load() error {
	return exec.Command("launchctl", "load", m.plistPath).Run()
}

func (m *LaunchdManager) unload() error {
	return exec.Command("launchctl", "unload", m.plistPath).Run()
}

var _ domain.ServiceManager = (*LaunchdManager)(nil)
