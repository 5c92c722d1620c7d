// Package config resolves the immutable watch configuration at start-up.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shotclip/shotclip/internal/domain"
)

const (
	// DefaultSettleDelay is how long a file must stay unchanged before it is
	// considered fully written. Tunable, not verified across platforms.
	DefaultSettleDelay = 500 * time.Millisecond

	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "SHOTCLIP_CONFIG"

	// EnvWatchDir overrides the watch directory without a config file.
	EnvWatchDir = "SHOTCLIP_WATCH_DIR"
)

// DefaultExtensions are the recognized screenshot file extensions,
// lowercase, without the leading dot.
var DefaultExtensions = []string{"png", "jpg", "jpeg", "heic", "tiff", "pdf"}

// fileConfig is the on-disk YAML shape. All fields optional.
type fileConfig struct {
	WatchDir      string   `yaml:"watch_dir"`
	Extensions    []string `yaml:"extensions"`
	SettleDelayMs int      `yaml:"settle_delay_ms"`
	Notify        *bool    `yaml:"notify"`
	NotifySound   bool     `yaml:"notify_sound"`
	LogFile       string   `yaml:"log_file"`
}

// Config is the resolved watch configuration. Built once per process start,
// never mutated, shared read-only by every component.
type Config struct {
	WatchDir    string
	Extensions  map[string]struct{} // lowercase, no dot
	SettleDelay time.Duration
	Notify      bool
	NotifySound bool
	LogFile     string
}

// Recognizes reports whether ext (with or without leading dot, any case) is
// a recognized extension.
func (c *Config) Recognizes(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	_, ok := c.Extensions[ext]
	return ok
}

// ExtensionList returns the recognized extensions sorted for display.
func (c *Config) ExtensionList() []string {
	out := make([]string, 0, len(c.Extensions))
	for e := range c.Extensions {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// Load resolves the full configuration: config file (if present), then
// environment overrides, then platform defaults. It creates the watch
// directory if missing and fails with *domain.ConfigurationError when the
// resolved path is unusable.
func Load() (*Config, error) {
	fc, err := readFile(configPath())
	if err != nil {
		return nil, err
	}
	return resolve(fc)
}

// LoadFrom is Load with an explicit config file path (for tests).
func LoadFrom(path string) (*Config, error) {
	fc, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return resolve(fc)
}

func configPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "shotclip", "config.yaml")
}

func readFile(path string) (*fileConfig, error) {
	fc := &fileConfig{}
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fc, nil
		}
		return nil, &domain.ConfigurationError{Reason: "reading config file " + path, Err: err}
	}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, &domain.ConfigurationError{Reason: "parsing config file " + path, Err: err}
	}
	return fc, nil
}

func resolve(fc *fileConfig) (*Config, error) {
	cfg := &Config{
		SettleDelay: DefaultSettleDelay,
		Notify:      true,
		NotifySound: fc.NotifySound,
		LogFile:     fc.LogFile,
	}

	if fc.SettleDelayMs > 0 {
		cfg.SettleDelay = time.Duration(fc.SettleDelayMs) * time.Millisecond
	}
	if fc.Notify != nil {
		cfg.Notify = *fc.Notify
	}

	exts := fc.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	cfg.Extensions = make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			cfg.Extensions[e] = struct{}{}
		}
	}

	dir := os.Getenv(EnvWatchDir)
	if dir == "" {
		dir = fc.WatchDir
	}
	if dir == "" {
		var err error
		dir, err = defaultWatchDir()
		if err != nil {
			return nil, &domain.ConfigurationError{Reason: "resolving default watch directory", Err: err}
		}
	}
	dir = expandHome(dir)
	if !filepath.IsAbs(dir) {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, &domain.ConfigurationError{Reason: "resolving watch directory " + dir, Err: err}
		}
		dir = abs
	}

	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	cfg.WatchDir = dir

	return cfg, nil
}

// defaultWatchDir follows the platform screenshot-folder convention.
func defaultWatchDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Desktop", "Screenshots"), nil
	default:
		return filepath.Join(home, "Pictures", "Screenshots"), nil
	}
}

// ensureDir creates dir (with parents) and verifies it is a readable
// directory. A non-directory at the path is fatal.
func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return &domain.ConfigurationError{
				Reason: fmt.Sprintf("watch path %s exists but is not a directory", dir),
			}
		}
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &domain.ConfigurationError{Reason: "creating watch directory " + dir, Err: err}
		}
	default:
		return &domain.ConfigurationError{Reason: "checking watch directory " + dir, Err: err}
	}

	// The watcher needs to enumerate the directory; probe read access now so
	// permission problems surface at install/status time rather than as a
	// silent dead watch.
	f, err := os.Open(dir)
	if err != nil {
		return &domain.ConfigurationError{Reason: "opening watch directory " + dir, Err: err}
	}
	f.Close()
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
