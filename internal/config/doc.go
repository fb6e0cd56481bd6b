// Package config loads, normalizes, and validates the TOML configuration
// consumed by the CLI and every pipeline stage.
package config
