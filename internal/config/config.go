package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// ClassLimits bounds polling behavior for one operation class.
type ClassLimits struct {
	PollIntervalMs       int `toml:"poll_interval_ms"`
	MaxConsecutiveErrors int `toml:"max_consecutive_errors"`
	MaxDurationSeconds   int `toml:"max_duration_seconds"`
}

// Auth contains settings for the remote-account handshake.
type Auth struct {
	MaxLockedRetries int `toml:"max_locked_retries"`
	RetryBackoffMs   int `toml:"retry_backoff_ms"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config encapsulates all configuration values for packmill.
type Config struct {
	WorkerURL      string `toml:"worker_url"`
	RequestTimeout int    `toml:"request_timeout"`
	LockDir        string `toml:"lock_dir"`
	LogDir         string `toml:"log_dir"`
	HistoryDB      string `toml:"history_db"`
	LogLevel       string `toml:"log_level"`
	LogFormat      string `toml:"log_format"`
	OutputDir      string `toml:"output_dir"`

	Convert ClassLimits `toml:"convert"`
	Patch   ClassLimits `toml:"patch"`
	Publish ClassLimits `toml:"publish"`

	Auth          Auth          `toml:"auth"`
	Notifications Notifications `toml:"notifications"`
}

// Limits returns the polling limits configured for a class name. Unknown
// classes fall back to convert limits, the most conservative set.
func (c *Config) Limits(class string) ClassLimits {
	switch strings.ToLower(strings.TrimSpace(class)) {
	case "patch":
		return c.Patch
	case "publish":
		return c.Publish
	default:
		return c.Convert
	}
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/packmill/config.toml")
}

// Load locates, parses, and validates a configuration file. When path is
// empty the default location is used; a missing file yields defaults.
func Load(path string) (*Config, string, error) {
	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}

	cfg := Default()
	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, resolved, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == "":
		// No config written yet; defaults apply.
	default:
		return nil, resolved, fmt.Errorf("read config %s: %w", resolved, err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, resolved, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, resolved, err
	}
	return &cfg, resolved, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

func resolveConfigPath(path string) (string, error) {
	if strings.TrimSpace(path) != "" {
		return expandPath(path)
	}
	return DefaultConfigPath()
}

func (c *Config) expandPaths() error {
	fields := []*string{&c.LockDir, &c.LogDir, &c.HistoryDB, &c.OutputDir}
	for _, field := range fields {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	return nil
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(path)
}
