// Package queue persists subtitle jobs in a SQLite database so operations
// survive restarts and can be inspected, retried, and cleared from the CLI.
//
// Jobs move through stable statuses (pending, scrubbed, translated,
// normalized) and in-flight statuses (scrubbing, translating, normalizing,
// rendering). A crash mid-stage is recovered on startup by rolling in-flight
// jobs back to the stage's input status.
package queue
