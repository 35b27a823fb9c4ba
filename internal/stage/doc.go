// Package stage defines the contract pipeline stages implement and the
// health records the workflow manager aggregates before running them.
package stage
