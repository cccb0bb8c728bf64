// Package config handles configuration loading, validation, and management for wlchewing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"wlchewing/internal/ime"
	"wlchewing/internal/logging"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete input method configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// StartInEnglish starts in forwarding mode instead of composing.
	StartInEnglish bool `toml:"start_in_english" json:"start_in_english" yaml:"start_in_english"`

	// ToggleKey switches modes when pressed together with Ctrl.
	ToggleKey string `toml:"toggle_key" json:"toggle_key" yaml:"toggle_key"`

	// TrayIcon registers a StatusNotifierItem showing the current mode.
	TrayIcon bool `toml:"tray_icon" json:"tray_icon" yaml:"tray_icon"`

	// Engine configuration for the phonetic engine.
	Engine EngineConfig `toml:"engine" json:"engine" yaml:"engine"`

	// Panel configuration for the candidate strip.
	Panel PanelConfig `toml:"panel" json:"panel" yaml:"panel"`

	// Repeat overrides the compositor's key repeat settings.
	Repeat RepeatConfig `toml:"repeat" json:"repeat" yaml:"repeat"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// EngineConfig holds phonetic engine settings.
type EngineConfig struct {
	// KeyboardLayout is a libchewing keyboard type name such as KB_DEFAULT
	// or KB_HSU.
	KeyboardLayout string `toml:"keyboard_layout" json:"keyboard_layout" yaml:"keyboard_layout"`

	// CandidatesPerPage is the page size the engine uses for its lists.
	CandidatesPerPage int `toml:"candidates_per_page" json:"candidates_per_page" yaml:"candidates_per_page"`
}

// PanelConfig holds candidate strip settings.
type PanelConfig struct {
	// KeyHints prefixes every candidate with the digit that selects it.
	KeyHints bool `toml:"key_hints" json:"key_hints" yaml:"key_hints"`

	// MaxColumns is the display width the strip is truncated to.
	MaxColumns int `toml:"max_columns" json:"max_columns" yaml:"max_columns"`
}

// RepeatConfig holds key repeat overrides. Zero keeps the compositor value.
type RepeatConfig struct {
	RateOverride    int `toml:"rate_override" json:"rate_override" yaml:"rate_override"`
	DelayMsOverride int `toml:"delay_ms_override" json:"delay_ms_override" yaml:"delay_ms_override"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is text or json.
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is stderr, stdout, file or both.
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file used when Output includes a file.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	MaxSizeMB  int  `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int  `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
	Compress   bool `toml:"compress" json:"compress" yaml:"compress"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:        Version,
		StartInEnglish: false,
		ToggleKey:      "space",
		TrayIcon:       true,
		Engine: EngineConfig{
			KeyboardLayout:    "KB_DEFAULT",
			CandidatesPerPage: ime.WindowSize,
		},
		Panel: PanelConfig{
			KeyHints:   true,
			MaxColumns: 80,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   logging.DefaultLogPath(),
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   true,
		},
	}
}

// Load reads configuration from the specified path. A missing file yields
// the defaults. The format follows the file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with WLCHEWING_.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("WLCHEWING_START_IN_ENGLISH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.StartInEnglish = b
		}
	}
	if v := os.Getenv("WLCHEWING_TOGGLE_KEY"); v != "" {
		c.ToggleKey = v
	}
	if v := os.Getenv("WLCHEWING_TRAY_ICON"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.TrayIcon = b
		}
	}
	if v := os.Getenv("WLCHEWING_KEYBOARD_LAYOUT"); v != "" {
		c.Engine.KeyboardLayout = v
	}

	// Logging overrides
	if v := os.Getenv("WLCHEWING_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("WLCHEWING_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
}

// SessionOptions converts the settings the input method session uses.
func (c *Config) SessionOptions() (ime.Options, error) {
	sym, err := ime.ParseSym(c.ToggleKey)
	if err != nil {
		return ime.Options{}, fmt.Errorf("toggle_key: %w", err)
	}
	return ime.Options{
		ToggleKey:      sym,
		StartInEnglish: c.StartInEnglish,
		RepeatRate:     int32(c.Repeat.RateOverride),
		RepeatDelay:    time.Duration(c.Repeat.DelayMsOverride) * time.Millisecond,
	}, nil
}

// LoggerConfig converts the logging section.
func (l LoggingConfig) LoggerConfig() (*logging.Config, error) {
	level, err := logging.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(l.Format)
	if err != nil {
		return nil, err
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = format
	cfg.Output = l.Output
	cfg.FilePath = l.FilePath
	cfg.MaxSize = int64(l.MaxSizeMB)
	cfg.MaxBackups = l.MaxBackups
	cfg.Compress = l.Compress
	return cfg, nil
}

// ConfigDir returns $XDG_CONFIG_HOME/wlchewing, or ~/.config/wlchewing.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "wlchewing")
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "wlchewing")
}

// ConfigPath returns the default configuration file path. An existing
// config.json or config.yaml is preferred over the TOML default.
func ConfigPath() string {
	dir := ConfigDir()
	for _, ext := range SupportedConfigFormats() {
		path := filepath.Join(dir, "config."+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return filepath.Join(dir, "config.toml")
}

// SupportedConfigFormats returns the list of supported config file formats.
func SupportedConfigFormats() []string {
	return []string{"toml", "json", "yaml", "yml"}
}
