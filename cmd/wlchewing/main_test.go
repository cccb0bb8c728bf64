package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wlchewing/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		flags = runFlags{}
		forceInit = false
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "wlchewing dev")
}

func TestConfigInitAndCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	out, err := execute(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)
	require.FileExists(t, path)

	out, err = execute(t, "config", "check", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")

	_, err = execute(t, "config", "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "config", "init", "--force", "--config", path)
	assert.NoError(t, err)
}

func TestConfigCheckReportsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[engine]\nkeyboard_layout = \"KB_NOPE\"\n"), 0o600))

	out, err := execute(t, "config", "check", "--config", path)
	require.Error(t, err)
	assert.Contains(t, out, "engine.keyboard_layout")

	require.NoError(t, os.WriteFile(path, []byte("[engine]\ncandidates_per_page = 99\n"), 0o600))
	_, err = execute(t, "config", "check", "--config", path)
	assert.ErrorContains(t, err, "candidates_per_page")
}

func TestConfigInitKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("toggle_key = \"grave\"\n"), 0o600))

	_, err := execute(t, "config", "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "toggle_key = \"grave\"\n", string(data))
}

func TestConfigSchema(t *testing.T) {
	out, err := execute(t, "config", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "candidates_per_page")
	assert.JSONEq(t, string(config.Schema()), out)
}

func TestConfigPath(t *testing.T) {
	out, err := execute(t, "config", "path", "--config", "/tmp/x.toml")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.toml\n", out)
}
