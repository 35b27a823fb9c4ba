// Package stageexec runs a single pipeline stage against a queue job and
// persists the status transitions around it.
package stageexec
