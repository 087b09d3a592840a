package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/polyglot/internal/detect"
	"github.com/MeKo-Tech/polyglot/internal/translate"
)

// Config represents the complete configuration for polyglot.
// It covers every command (detect, translate, batch, history, serve) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Language detection
	Detection DetectionConfig `mapstructure:"detection" yaml:"detection" json:"detection"`

	// Translation provider
	Translator TranslatorConfig `mapstructure:"translator" yaml:"translator" json:"translator"`

	// Local translation history
	History HistoryConfig `mapstructure:"history" yaml:"history" json:"history"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// DetectionConfig controls the heuristic detector and the remote fallback
// used for text no rule recognises.
type DetectionConfig struct {
	TransliterationProfiles []string `mapstructure:"transliteration_profiles" yaml:"transliteration_profiles" json:"transliteration_profiles"`
	RemoteFallback          bool     `mapstructure:"remote_fallback" yaml:"remote_fallback" json:"remote_fallback"`
	RemoteProvider          string   `mapstructure:"remote_provider" yaml:"remote_provider" json:"remote_provider"`
	RemoteTimeoutSec        int      `mapstructure:"remote_timeout_sec" yaml:"remote_timeout_sec" json:"remote_timeout_sec"`
	LinguaMinDistance       float64  `mapstructure:"lingua_min_distance" yaml:"lingua_min_distance" json:"lingua_min_distance"`
	CatalogFile             string   `mapstructure:"catalog_file" yaml:"catalog_file" json:"catalog_file"`
}

// TranslatorConfig selects the translation backend.
type TranslatorConfig struct {
	Provider   string `mapstructure:"provider" yaml:"provider" json:"provider"`
	Endpoint   string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key" json:"-"`
	Model      string `mapstructure:"model" yaml:"model" json:"model"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
}

// HistoryConfig contains history store settings.
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Path         string `mapstructure:"path" yaml:"path" json:"path"`
	DefaultLimit int    `mapstructure:"default_limit" yaml:"default_limit" json:"default_limit"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxTextKB       int    `mapstructure:"max_text_kb" yaml:"max_text_kb" json:"max_text_kb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	DebounceMS      int    `mapstructure:"debounce_ms" yaml:"debounce_ms" json:"debounce_ms"`

	// Rate limiting
	RateLimitEnabled  bool  `mapstructure:"rate_limit_enabled" yaml:"rate_limit_enabled" json:"rate_limit_enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxCharsPerDay    int64 `mapstructure:"max_chars_per_day" yaml:"max_chars_per_day" json:"max_chars_per_day"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int  `mapstructure:"workers" yaml:"workers" json:"workers"`
	ContinueOnError bool `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Detection: DetectionConfig{
			TransliterationProfiles: []string{detect.Hindi.Code},
			RemoteFallback:          true,
			RemoteProvider:          translate.DetectorTranslator,
			RemoteTimeoutSec:        5,
			LinguaMinDistance:       0.1,
		},
		Translator: TranslatorConfig{
			Provider:   translate.ProviderLibreTranslate,
			Endpoint:   "http://localhost:5000",
			Model:      "gpt-4o-mini",
			TimeoutSec: 30,
		},
		History: HistoryConfig{
			Enabled:      true,
			Path:         DefaultHistoryPath(),
			DefaultLimit: 20,
		},
		Output: OutputConfig{
			Format: "text",
		},
		Server: ServerConfig{
			Host:              "localhost",
			Port:              8080,
			CORSOrigin:        "*",
			MaxTextKB:         64,
			TimeoutSec:        30,
			ShutdownTimeout:   10,
			DebounceMS:        400,
			RateLimitEnabled:  false,
			RequestsPerMinute: 60,
			RequestsPerHour:   1000,
			MaxRequestsPerDay: 5000,
			MaxCharsPerDay:    500000,
		},
		Batch: BatchConfig{
			Workers:         4,
			ContinueOnError: false,
		},
	}
}

// DefaultHistoryPath returns $XDG_DATA_HOME/polyglot/history.db, falling back
// to ~/.local/share and finally to the working directory.
func DefaultHistoryPath() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "polyglot", "history.db")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "polyglot", "history.db")
	}
	return "polyglot-history.db"
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "csv"}
	if c.Output.Format != "" && !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if err := c.Detection.validate(); err != nil {
		return err
	}

	validProviders := []string{translate.ProviderLibreTranslate, translate.ProviderOpenAI, translate.ProviderNone, ""}
	if !contains(validProviders, strings.ToLower(c.Translator.Provider)) {
		return fmt.Errorf("invalid translator provider: %s (must be one of: %s)", c.Translator.Provider, strings.Join(validProviders[:3], ", "))
	}
	if c.Translator.TimeoutSec < 0 {
		return fmt.Errorf("invalid translator timeout: %d (must not be negative)", c.Translator.TimeoutSec)
	}

	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path must be set when history is enabled")
	}
	if c.History.DefaultLimit < 0 {
		return fmt.Errorf("invalid history default limit: %d (must not be negative)", c.History.DefaultLimit)
	}

	// Validate positive integers
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxTextKB <= 0 {
		return fmt.Errorf("invalid max text size: %d (must be positive)", c.Server.MaxTextKB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.DebounceMS < 0 {
		return fmt.Errorf("invalid debounce: %d (must not be negative)", c.Server.DebounceMS)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}

	return nil
}

func (d *DetectionConfig) validate() error {
	for _, code := range d.TransliterationProfiles {
		if _, ok := detect.LookupProfile(code); !ok {
			return fmt.Errorf("unknown transliteration profile: %s", code)
		}
	}

	validRemote := []string{translate.DetectorTranslator, translate.DetectorLingua, translate.DetectorNone}
	if d.RemoteProvider != "" && !contains(validRemote, strings.ToLower(d.RemoteProvider)) {
		return fmt.Errorf("invalid remote provider: %s (must be one of: %s)", d.RemoteProvider, strings.Join(validRemote, ", "))
	}
	if d.RemoteTimeoutSec < 0 {
		return fmt.Errorf("invalid remote timeout: %d (must not be negative)", d.RemoteTimeoutSec)
	}
	// lingua rejects a distance of 1 or more
	if d.LinguaMinDistance < 0.0 || d.LinguaMinDistance > 0.99 {
		return fmt.Errorf("invalid detection.lingua_min_distance: %.2f (must be between 0.0 and 0.99)", d.LinguaMinDistance)
	}
	return nil
}

// Profiles returns the configured transliteration profiles in order.
func (c *Config) Profiles() ([]*detect.Profile, error) {
	out := make([]*detect.Profile, 0, len(c.Detection.TransliterationProfiles))
	for _, code := range c.Detection.TransliterationProfiles {
		p, ok := detect.LookupProfile(code)
		if !ok {
			return nil, fmt.Errorf("unknown transliteration profile: %s", code)
		}
		out = append(out, p)
	}
	return out, nil
}

// RemoteDetectorName returns the remote detector to build, or "none" when
// the remote fallback is switched off.
func (c *Config) RemoteDetectorName() string {
	if !c.Detection.RemoteFallback {
		return translate.DetectorNone
	}
	return c.Detection.RemoteProvider
}

// RemoteTimeout returns the remote detection timeout.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Detection.RemoteTimeoutSec) * time.Second
}

// ToTranslateConfig converts the translator section to translate.Config.
func (c *Config) ToTranslateConfig() translate.Config {
	return translate.Config{
		Provider: c.Translator.Provider,
		Endpoint: c.Translator.Endpoint,
		APIKey:   c.Translator.APIKey,
		Model:    c.Translator.Model,
		Timeout:  time.Duration(c.Translator.TimeoutSec) * time.Second,
	}
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
