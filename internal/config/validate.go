package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorker(); err != nil {
		return err
	}
	for _, section := range []struct {
		name   string
		limits ClassLimits
	}{
		{"convert", c.Convert},
		{"patch", c.Patch},
		{"publish", c.Publish},
	} {
		if err := validateLimits(section.name, section.limits); err != nil {
			return err
		}
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorker() error {
	raw := strings.TrimSpace(c.WorkerURL)
	if raw == "" {
		return errors.New("worker_url must be set")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("worker_url %q is not a valid URL", raw)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("worker_url scheme %q is not supported", parsed.Scheme)
	}
	if c.RequestTimeout < 0 {
		return errors.New("request_timeout must not be negative")
	}
	return nil
}

func validateLimits(name string, limits ClassLimits) error {
	if limits.PollIntervalMs <= 0 {
		return fmt.Errorf("%s.poll_interval_ms must be positive", name)
	}
	if limits.MaxConsecutiveErrors <= 0 {
		return fmt.Errorf("%s.max_consecutive_errors must be positive", name)
	}
	if limits.MaxDurationSeconds <= 0 {
		return fmt.Errorf("%s.max_duration_seconds must be positive", name)
	}
	return nil
}

func (c *Config) validateAuth() error {
	if c.Auth.MaxLockedRetries < 0 {
		return errors.New("auth.max_locked_retries must not be negative")
	}
	if c.Auth.RetryBackoffMs < 0 {
		return errors.New("auth.retry_backoff_ms must not be negative")
	}
	return nil
}
