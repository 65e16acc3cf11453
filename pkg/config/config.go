package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	// AppName is the application name used in paths
	AppName = "gozfs"

	// EnvFile is read from the config directory before the environment.
	EnvFile = AppName + ".env"
)

var validate = validator.New()

// Config holds all application configuration.
type Config struct {
	// Paths
	DataDir   string // Base data directory (XDG_DATA_HOME/gozfs)
	ConfigDir string // Config directory (XDG_CONFIG_HOME/gozfs)

	// ZFSBin is the zfs executable, looked up on PATH unless absolute
	ZFSBin string `validate:"required"`

	// Journal records every zfs invocation in the sqlite database at DBPath
	Journal bool
	DBPath  string `validate:"required_if=Journal true"`

	// Server
	APIAddress string `validate:"required,hostname_port"`

	// Logging
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=text json"`
}

// New loads $XDG_CONFIG_HOME/gozfs/gozfs.env if present, then builds the
// configuration from the environment. Variables already set in the
// environment win over the file.
func New() (*Config, error) {
	cfg := &Config{}

	// Base directories (XDG Base Directory Specification)
	cfg.DataDir = getDataDir()
	cfg.ConfigDir = getConfigDir()

	if err := loadEnvFile(filepath.Join(cfg.ConfigDir, EnvFile)); err != nil {
		return nil, err
	}

	cfg.ZFSBin = envOrDefault("GOZFS_ZFS_BIN", "zfs")

	cfg.Journal = envBool("GOZFS_JOURNAL", true)
	cfg.DBPath = envOrDefault("GOZFS_DB_PATH", filepath.Join(cfg.DataDir, "gozfs.db"))

	// Server config
	cfg.APIAddress = envOrDefault("GOZFS_API_ADDRESS", ":8148")

	// Logging
	cfg.LogLevel = strings.ToLower(envOrDefault("GOZFS_LOG_LEVEL", "info"))
	cfg.LogFormat = strings.ToLower(envOrDefault("GOZFS_LOG_FORMAT", "text"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags of c.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("invalid configuration: %s failed on '%s' (value: %v)", e.Field(), e.Tag(), e.Value())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// getDataDir returns the data directory following XDG spec.
// $XDG_DATA_HOME/gozfs or ~/.local/share/gozfs
func getDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", AppName, "data")
	}
	return filepath.Join(home, ".local", "share", AppName)
}

// getConfigDir returns the config directory following XDG spec.
// $XDG_CONFIG_HOME/gozfs or ~/.config/gozfs
func getConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", AppName, "config")
	}
	return filepath.Join(home, ".config", AppName)
}

// envOrDefault returns the environment variable value or the default.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// envBool accepts on/off in addition to the usual boolean spellings.
func envBool(key string, defaultVal bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "t", "true", "on", "yes":
		return true
	case "0", "f", "false", "off", "no":
		return false
	default:
		return defaultVal
	}
}
