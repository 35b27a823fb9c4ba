// Package ops tracks in-flight operations so they can be cancelled from
// outside their own goroutines.
//
// Each operation registers under an opaque id before it starts real work,
// optionally as a generic placeholder that is later promoted once the
// concrete handle kind is known. Cancellation fires the operation's context
// cancel first, then terminates any attached external processes and
// force-closes any attached browser page, covering work that cooperative
// checkpoints alone cannot interrupt.
package ops
