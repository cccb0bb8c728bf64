package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wlchewing/internal/ime"
	"wlchewing/internal/logging"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "space", cfg.ToggleKey)
	assert.Equal(t, "KB_DEFAULT", cfg.Engine.KeyboardLayout)
	assert.True(t, cfg.TrayIcon)
}

func TestConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	assert.Equal(t, filepath.Join(dir, "wlchewing", "config.toml"), ConfigPath())

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "wlchewing"), 0700))
	yamlPath := filepath.Join(dir, "wlchewing", "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, nil, 0600))
	assert.Equal(t, yamlPath, ConfigPath())
}

func TestLoadNonexistent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().ToggleKey, cfg.ToggleKey)
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"toml", "config.toml", `
start_in_english = true
toggle_key = "grave"

[engine]
keyboard_layout = "KB_HSU"

[repeat]
rate_override = 30
`},
		{"json", "config.json", `{
  "start_in_english": true,
  "toggle_key": "grave",
  "engine": {"keyboard_layout": "KB_HSU"},
  "repeat": {"rate_override": 30}
}`},
		{"yaml", "config.yaml", `
start_in_english: true
toggle_key: grave
engine:
  keyboard_layout: KB_HSU
repeat:
  rate_override: 30
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)
			assert.True(t, cfg.StartInEnglish)
			assert.Equal(t, "grave", cfg.ToggleKey)
			assert.Equal(t, "KB_HSU", cfg.Engine.KeyboardLayout)
			assert.Equal(t, 30, cfg.Repeat.RateOverride)
			// untouched sections keep their defaults
			assert.Equal(t, 80, cfg.Panel.MaxColumns)
			assert.Equal(t, "info", cfg.Logging.Level)
		})
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeFile(t, "config.toml", "[engine]\nkeyboard_layuot = \"KB_HSU\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestLoadRejectsWrongTypes(t *testing.T) {
	_, err := Load(writeFile(t, "config.yaml", "tray_icon: maybe\n"))
	require.Error(t, err)
}

func TestLoadInvalidTOML(t *testing.T) {
	_, err := Load(writeFile(t, "config.toml", "toggle_key = \n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode TOML")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WLCHEWING_START_IN_ENGLISH", "true")
	t.Setenv("WLCHEWING_TOGGLE_KEY", "grave")
	t.Setenv("WLCHEWING_TRAY_ICON", "false")
	t.Setenv("WLCHEWING_KEYBOARD_LAYOUT", "KB_ET26")
	t.Setenv("WLCHEWING_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.True(t, cfg.StartInEnglish)
	assert.Equal(t, "grave", cfg.ToggleKey)
	assert.False(t, cfg.TrayIcon)
	assert.Equal(t, "KB_ET26", cfg.Engine.KeyboardLayout)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"version", func(c *Config) { c.Version = 9 }, "version"},
		{"toggle key", func(c *Config) { c.ToggleKey = "hyper" }, "toggle_key"},
		{"layout", func(c *Config) { c.Engine.KeyboardLayout = "KB_QWERTY" }, "engine.keyboard_layout"},
		{"page size", func(c *Config) { c.Engine.CandidatesPerPage = 11 }, "engine.candidates_per_page"},
		{"columns", func(c *Config) { c.Panel.MaxColumns = 2 }, "panel.max_columns"},
		{"repeat rate", func(c *Config) { c.Repeat.RateOverride = -1 }, "repeat.rate_override"},
		{"repeat delay", func(c *Config) { c.Repeat.DelayMsOverride = 60000 }, "repeat.delay_ms_override"},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"log file", func(c *Config) { c.Logging.Output = "file"; c.Logging.FilePath = "" }, "logging.file_path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestSessionOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ToggleKey = "grave"
	cfg.StartInEnglish = true
	cfg.Repeat = RepeatConfig{RateOverride: 40, DelayMsOverride: 250}

	opts, err := cfg.SessionOptions()
	require.NoError(t, err)
	assert.Equal(t, ime.Options{
		ToggleKey:      '`',
		StartInEnglish: true,
		RepeatRate:     40,
		RepeatDelay:    250 * time.Millisecond,
	}, opts)

	cfg.ToggleKey = "nope"
	_, err = cfg.SessionOptions()
	assert.Error(t, err)
}

func TestLoggerConfig(t *testing.T) {
	l := DefaultConfig().Logging
	l.Level = "warn"
	l.Format = "json"

	cfg, err := l.LoggerConfig()
	require.NoError(t, err)
	assert.Equal(t, logging.LevelWarn, cfg.Level)
	assert.Equal(t, logging.FormatJSON, cfg.Format)
	assert.Equal(t, "wlchewing", cfg.Component)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	for _, ext := range []string{"toml", "json", "yaml"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "config."+ext)
			cfg := DefaultConfig()
			cfg.ToggleKey = "grave"
			cfg.Panel.KeyHints = false
			require.NoError(t, SaveConfig(cfg, path))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, DefaultConfig(), cfg)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# wlchewing configuration")

	_, created, err = LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestLoaderRejectsInvalidFile(t *testing.T) {
	path := writeFile(t, "config.toml", "toggle_key = \"hyper\"\n")
	_, err := NewLoader(path).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoaderWatchReloads(t *testing.T) {
	path := writeFile(t, "config.toml", "toggle_key = \"space\"\n")
	l := NewLoader(path)
	l.debounce = 10 * time.Millisecond
	_, err := l.Load()
	require.NoError(t, err)

	changed := make(chan *Config, 1)
	l.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	require.NoError(t, l.Watch())
	defer l.Close()

	require.NoError(t, os.WriteFile(path, []byte("toggle_key = \"grave\"\n"), 0600))

	select {
	case c := <-changed:
		assert.Equal(t, "grave", c.ToggleKey)
		assert.Equal(t, "grave", l.Config().ToggleKey)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
}

func TestLoaderWatchKeepsConfigOnBadReload(t *testing.T) {
	path := writeFile(t, "config.toml", "toggle_key = \"space\"\n")
	l := NewLoader(path)
	l.debounce = 10 * time.Millisecond
	_, err := l.Load()
	require.NoError(t, err)
	require.NoError(t, l.Watch())
	defer l.Close()

	require.NoError(t, os.WriteFile(path, []byte("toggle_key = \"hyper\"\n"), 0600))

	select {
	case err := <-l.Errors():
		assert.ErrorIs(t, err, ErrInvalidConfig)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload error reported")
	}
	assert.Equal(t, "space", l.Config().ToggleKey)
}
