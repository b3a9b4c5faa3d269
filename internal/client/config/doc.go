// Package config loads runtime configuration for the backpack CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file, JSON or YAML by extension, selected with --config.
//  3. A .env file and the process environment, BACKPACK_ prefixed.
//  4. Command-line flags the user set explicitly (see RegisterFlags).
//
// # File schema
//
// Durations are strings like "15s" or integer nanoseconds:
//
//	server_root: https://backpack.example.org/
//	client_id: backpack-cli
//	cache_backend: redis
//	redis_url: redis://localhost:6379/0
//	online_check_interval: 15s
//	sync_concurrency: 4
//
// The loaded Config is validated with go-playground/validator before use.
package config
