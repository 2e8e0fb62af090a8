// Package testsupport provides helpers shared across package tests: temp-dir
// configs with fast polling limits and a scripted fake worker server.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"packmill/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test
// and polling limits tight enough for fast tests.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.WorkerURL = "http://127.0.0.1:0"
	cfg.LockDir = filepath.Join(base, "locks")
	cfg.LogDir = filepath.Join(base, "logs")
	cfg.HistoryDB = filepath.Join(base, "history.db")
	cfg.OutputDir = filepath.Join(base, "output")

	fast := config.ClassLimits{
		PollIntervalMs:       5,
		MaxConsecutiveErrors: 3,
		MaxDurationSeconds:   5,
	}
	cfg.Convert = fast
	cfg.Patch = fast
	cfg.Publish = fast
	cfg.Auth.RetryBackoffMs = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithWorkerURL points the test config at a specific worker endpoint,
// typically an httptest server URL.
func WithWorkerURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.WorkerURL = url
	}
}

// WithClassLimits overrides the limits for every class at once.
func WithClassLimits(limits config.ClassLimits) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Convert = limits
		cfg.Patch = limits
		cfg.Publish = limits
	}
}

// WriteConfigFile renders cfg as TOML under a temp dir and returns the file
// path, for commands that take --config.
func WriteConfigFile(t testing.TB, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
