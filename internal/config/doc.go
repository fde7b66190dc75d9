// Package config loads, normalizes, and validates enscribe configuration.
//
// Values are layered: built-in defaults, then an optional TOML file, then
// ENSCRIBE_* environment variables (a .env file in the working directory is
// read first and never overrides variables already set). The resulting Config
// is a plain value: callers pass copies into constructors and nothing mutates
// it after Load returns.
package config
