// Package logging wires log/slog with console and JSON handlers, standardized
// field keys, context-derived attributes, and sampling for progress output.
package logging
