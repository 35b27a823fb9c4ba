// Package config loads and validates subforge's TOML configuration.
//
// Load resolves the config path (explicit flag, ~/.config/subforge, or a
// project-local subforge.toml), applies defaults for missing keys, expands ~
// in every path field, and validates the result. A missing file is not an
// error; the defaults are usable for everything except the LLM-backed stages.
package config
