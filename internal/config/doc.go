// Package config loads, normalizes, and validates biblestudy configuration.
//
// It defines the TOML schema, applies defaults for every section, expands
// user-relative paths, and pulls completion backend credentials from the
// environment when the file leaves them blank. Validate keeps obviously
// invalid settings out of the server; ValidateLLM is checked separately so
// chapter browsing works without any backend credentials.
//
// Use Load to obtain a Config, CreateSample to bootstrap a new file, and
// Encode to print the effective settings without leaking secrets.
package config
