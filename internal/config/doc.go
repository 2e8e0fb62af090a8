// Package config loads, defaults, and validates the packmill TOML
// configuration: worker endpoint, per-class polling limits, auth retry
// policy, notification settings, and local paths.
package config
