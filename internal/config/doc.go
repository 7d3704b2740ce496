// Package config provides configuration loading and validation for the
// duplex audio bridge. It handles YAML-based configuration with per-section
// struct validation.
package config
