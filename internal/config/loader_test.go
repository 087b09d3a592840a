package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newTestLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "polyglot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	require.NotNil(t, loader)
	assert.Same(t, viper.GetViper(), loader.GetViper())
}

func TestLoadWithNoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := newTestLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, infoLevel, cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"hi"}, cfg.Detection.TransliterationProfiles)
}

func TestLoadFindsFileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "polyglot.yaml"), []byte("log_level: warn\n"), 0o644))
	t.Chdir(dir)

	loader := newTestLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Contains(t, loader.GetConfigFileUsed(), "polyglot.yaml")
}

func TestLoadWithValidYAMLFile(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
verbose: true
detection:
  remote_provider: lingua
  remote_timeout_sec: 2
  lingua_min_distance: 0.25
translator:
  provider: openai
  model: gpt-test
history:
  enabled: false
server:
  host: 0.0.0.0
  port: 9090
  debounce_ms: 250
  max_chars_per_day: 1000
batch:
  workers: 8
  continue_on_error: true
`)

	cfg, err := newTestLoader().LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, debugLevel, cfg.LogLevel)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "lingua", cfg.Detection.RemoteProvider)
	assert.Equal(t, 2, cfg.Detection.RemoteTimeoutSec)
	assert.InDelta(t, 0.25, cfg.Detection.LinguaMinDistance, 1e-9)
	// Unset keys keep their defaults.
	assert.True(t, cfg.Detection.RemoteFallback)
	assert.Equal(t, []string{"hi"}, cfg.Detection.TransliterationProfiles)
	assert.Equal(t, "openai", cfg.Translator.Provider)
	assert.Equal(t, "gpt-test", cfg.Translator.Model)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 250, cfg.Server.DebounceMS)
	assert.Equal(t, int64(1000), cfg.Server.MaxCharsPerDay)
	assert.Equal(t, 8, cfg.Batch.Workers)
	assert.True(t, cfg.Batch.ContinueOnError)
}

func TestLoadWithInvalidYAMLFile(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
  invalid indentation
    more bad indentation
`)
	_, err := newTestLoader().LoadWithFile(path)
	assert.Error(t, err)
}

func TestLoadWithNonExistentFile(t *testing.T) {
	_, err := newTestLoader().LoadWithFile("/nonexistent/path/to/polyglot.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoadWithValidationFailure(t *testing.T) {
	path := writeConfig(t, "log_level: invalid_level\nserver:\n  port: 0\n")

	_, err := newTestLoader().LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")

	cfg, err := newTestLoader().LoadWithFileWithoutValidation(path)
	require.NoError(t, err)
	assert.Equal(t, "invalid_level", cfg.LogLevel)
	assert.Equal(t, 0, cfg.Server.Port)
}

func TestLoadWithEmptyFilenameUsesSearchPaths(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := newTestLoader().LoadWithFile("")
	require.NoError(t, err)
	assert.Equal(t, infoLevel, cfg.LogLevel)

	cfg, err = newTestLoader().LoadWithFileWithoutValidation("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Batch.Workers)
}

func TestEnvironmentVariableOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("POLYGLOT_LOG_LEVEL", "error")
	t.Setenv("POLYGLOT_SERVER_PORT", "7070")
	t.Setenv("POLYGLOT_DETECTION_REMOTE_FALLBACK", "false")
	t.Setenv("POLYGLOT_TRANSLATOR_API_KEY", "secret")

	cfg, err := newTestLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.False(t, cfg.Detection.RemoteFallback)
	assert.Equal(t, "secret", cfg.Translator.APIKey)
}

func TestMultipleConfigSourcesPrecedence(t *testing.T) {
	path := writeConfig(t, "log_level: debug\nserver:\n  port: 9000\n")
	t.Setenv("POLYGLOT_SERVER_PORT", "9100")

	loader := newTestLoader()
	loader.Set("log_level", "warn")

	cfg, err := loader.LoadWithFile(path)
	require.NoError(t, err)
	// Set beats env, env beats the file.
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestGetSetConfigValues(t *testing.T) {
	loader := newTestLoader()
	loader.Set("output.format", "json")
	assert.Equal(t, "json", loader.GetString("output.format"))
	assert.Equal(t, "json", loader.Get("output.format"))
}

func TestGetResolvedConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	loader := newTestLoader()
	_, err := loader.Load()
	require.NoError(t, err)

	settings := loader.GetResolvedConfig()
	assert.Contains(t, settings, "detection")
	assert.Contains(t, settings, "server")
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "polyglot.yaml")

	written, err := GenerateDefaultConfigFile(path, false)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	cfg, err := newTestLoader().LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server, cfg.Server)
	assert.Equal(t, DefaultConfig().Detection, cfg.Detection)

	_, err = GenerateDefaultConfigFile(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = GenerateDefaultConfigFile(path, true)
	assert.NoError(t, err)
}

func TestGenerateDefaultConfigFileWithEmptyFilename(t *testing.T) {
	t.Chdir(t.TempDir())

	written, err := GenerateDefaultConfigFile("", false)
	require.NoError(t, err)
	assert.Equal(t, "polyglot.yaml", written)
	assert.FileExists(t, "polyglot.yaml")
}

// The YAML tags must agree with the mapstructure tags viper reads, so a
// file written from a Config loads back unchanged.
func TestConfigYAMLRoundTrip(t *testing.T) {
	want := DefaultConfig()
	want.LogLevel = debugLevel
	want.Detection.TransliterationProfiles = []string{"hi"}
	want.Detection.CatalogFile = "/etc/polyglot/languages.yaml"
	want.Translator.APIKey = "sk-roundtrip"
	want.History.Path = "/tmp/history.db"
	want.Server.RateLimitEnabled = true
	want.Server.MaxCharsPerDay = 42

	data, err := yaml.Marshal(want)
	require.NoError(t, err)
	path := writeConfig(t, string(data))

	got, err := newTestLoader().LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	var direct Config
	require.NoError(t, yaml.NewDecoder(bytes.NewReader(data)).Decode(&direct))
	assert.Equal(t, want, direct)
}

func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	paths := GetConfigSearchPaths()

	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, filepath.Join("/xdg", "polyglot"))
	assert.Equal(t, "/etc/polyglot", paths[len(paths)-1])
}

func TestPrintConfigInfo(t *testing.T) {
	var buf bytes.Buffer
	newTestLoader().PrintConfigInfo(&buf)
	assert.Contains(t, buf.String(), "Environment prefix: POLYGLOT")
	assert.Contains(t, buf.String(), "/etc/polyglot")
}
