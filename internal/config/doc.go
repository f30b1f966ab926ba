// Package config loads the supervisor configuration from a YAML or JSON file
// with A2A_-prefixed environment overrides, then fills defaults and resolves
// relative paths against the file's directory.
package config
