package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the XDG directories at a temp dir and unsets GOZFS_*.
// t.Setenv restores the previous values, including anything the env file
// loaded.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	for _, k := range []string{
		"GOZFS_ZFS_BIN", "GOZFS_JOURNAL", "GOZFS_DB_PATH", "GOZFS_API_ADDRESS", "GOZFS_LOG_LEVEL", "GOZFS_LOG_FORMAT",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	return dir
}

func TestDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "zfs", cfg.ZFSBin)
	assert.True(t, cfg.Journal)
	assert.Equal(t, filepath.Join(dir, "data", "gozfs", "gozfs.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(dir, "config", "gozfs"), cfg.ConfigDir)
	assert.Equal(t, ":8148", cfg.APIAddress)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("GOZFS_ZFS_BIN", "/usr/sbin/zfs")
	t.Setenv("GOZFS_JOURNAL", "off")
	t.Setenv("GOZFS_LOG_LEVEL", "DEBUG")
	t.Setenv("GOZFS_LOG_FORMAT", "json")
	t.Setenv("GOZFS_API_ADDRESS", "127.0.0.1:9000")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/usr/sbin/zfs", cfg.ZFSBin)
	assert.False(t, cfg.Journal)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "127.0.0.1:9000", cfg.APIAddress)
}

func TestEnvFile(t *testing.T) {
	dir := isolate(t)
	cfgDir := filepath.Join(dir, "config", "gozfs")
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, EnvFile), []byte(
		"GOZFS_ZFS_BIN=/opt/zfs/bin/zfs\nGOZFS_LOG_LEVEL=warn\n",
	), 0o644))
	t.Setenv("GOZFS_LOG_LEVEL", "error")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/opt/zfs/bin/zfs", cfg.ZFSBin)
	assert.Equal(t, "error", cfg.LogLevel, "environment wins over the file")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			ZFSBin:     "zfs",
			Journal:    true,
			DBPath:     "/var/lib/gozfs/gozfs.db",
			APIAddress: ":8148",
			LogLevel:   "info",
			LogFormat:  "text",
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing binary", func(c *Config) { c.ZFSBin = "" }},
		{"journal without path", func(c *Config) { c.DBPath = "" }},
		{"bad address", func(c *Config) { c.APIAddress = "localhost" }},
		{"bad level", func(c *Config) { c.LogLevel = "verbose" }},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}

	c := valid()
	c.Journal = false
	c.DBPath = ""
	assert.NoError(t, c.Validate())
}
