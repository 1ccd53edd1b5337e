// Package config loads, validates, and normalizes Loom's TOML configuration.
package config
