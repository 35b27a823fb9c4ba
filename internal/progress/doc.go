// Package progress defines the one-way progress update stream emitted to the
// UI layer and the stage-band scaling every pipeline stage uses to report on
// a single 0-100 scale.
package progress
