package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shotclip/shotclip/internal/domain"
)

// TestLoadFrom_Defaults verifies defaults apply when the config file is absent
func TestLoadFrom_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(EnvWatchDir, filepath.Join(tmpDir, "shots"))

	cfg, err := LoadFrom(filepath.Join(tmpDir, "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultSettleDelay, cfg.SettleDelay)
	assert.True(t, cfg.Notify)
	assert.False(t, cfg.NotifySound)
	for _, ext := range DefaultExtensions {
		assert.True(t, cfg.Recognizes(ext), "default extension %s should be recognized", ext)
	}
	assert.False(t, cfg.Recognizes("txt"))
}

// TestLoadFrom_CreatesWatchDir verifies the watch directory is created with parents
func TestLoadFrom_CreatesWatchDir(t *testing.T) {
	tmpDir := t.TempDir()
	watchDir := filepath.Join(tmpDir, "nested", "deeper", "shots")
	t.Setenv(EnvWatchDir, watchDir)

	cfg, err := LoadFrom("")
	require.NoError(t, err)
	assert.Equal(t, watchDir, cfg.WatchDir)

	info, err := os.Stat(watchDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

// TestLoadFrom_FileOverrides verifies config file values take effect
func TestLoadFrom_FileOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(EnvWatchDir, "")

	cfgPath := filepath.Join(tmpDir, "config.yaml")
	content := `
watch_dir: ` + filepath.Join(tmpDir, "captures") + `
extensions: [PNG, .webp]
settle_delay_ms: 250
notify: false
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))

	cfg, err := LoadFrom(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tmpDir, "captures"), cfg.WatchDir)
	assert.Equal(t, 250*time.Millisecond, cfg.SettleDelay)
	assert.False(t, cfg.Notify)
	assert.True(t, cfg.Recognizes("png"), "extensions should be case-insensitive")
	assert.True(t, cfg.Recognizes(".WEBP"))
	assert.False(t, cfg.Recognizes("jpg"), "file extensions replace defaults")
}

// TestLoadFrom_EnvBeatsFile verifies the env var wins over the config file
func TestLoadFrom_EnvBeatsFile(t *testing.T) {
	tmpDir := t.TempDir()
	envDir := filepath.Join(tmpDir, "from-env")
	t.Setenv(EnvWatchDir, envDir)

	cfgPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath,
		[]byte("watch_dir: "+filepath.Join(tmpDir, "from-file")+"\n"), 0644))

	cfg, err := LoadFrom(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, envDir, cfg.WatchDir)
}

// TestLoadFrom_PathIsFile verifies a non-directory watch path is a fatal
// configuration error
func TestLoadFrom_PathIsFile(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "not-a-dir")
	require.NoError(t, os.WriteFile(filePath, []byte("x"), 0644))
	t.Setenv(EnvWatchDir, filePath)

	_, err := LoadFrom("")
	require.Error(t, err)

	var confErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &confErr)
}

// TestLoadFrom_MalformedYAML verifies parse failures are configuration errors
func TestLoadFrom_MalformedYAML(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("watch_dir: [unclosed"), 0644))

	_, err := LoadFrom(cfgPath)
	require.Error(t, err)

	var confErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &confErr)
}

// TestExtensionList_Sorted verifies stable, sorted display output
func TestExtensionList_Sorted(t *testing.T) {
	cfg := &Config{Extensions: map[string]struct{}{
		"tiff": {}, "png": {}, "heic": {}, "jpg": {},
	}}

	assert.Equal(t, []string{"heic", "jpg", "png", "tiff"}, cfg.ExtensionList())
}

// TestRecognizes_DotAndCase verifies extension matching normalization
func TestRecognizes_DotAndCase(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(EnvWatchDir, filepath.Join(tmpDir, "s"))

	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.True(t, cfg.Recognizes(".png"))
	assert.True(t, cfg.Recognizes("PNG"))
	assert.True(t, cfg.Recognizes(".HeIc"))
	assert.False(t, cfg.Recognizes(""))
}
