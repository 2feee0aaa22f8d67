// Package config handles configuration for the oxe CLI.
//
// Configuration is resolved in precedence order: built-in defaults, then an
// optional YAML config file, then OXE_* environment variables, then
// command-line flags (merged by the caller via [Config.Merge]).
package config
