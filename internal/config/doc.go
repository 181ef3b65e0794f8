// Package config loads and validates the wstap tool configuration.
//
// Configuration is YAML with ${VAR} environment variable expansion,
// loaded in three stages: parse, apply defaults, validate.
package config
