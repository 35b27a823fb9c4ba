// Package segment defines the subtitle cue model shared by every pipeline
// stage, along with cue composition, SRT serialization, render-event
// projection, and track normalization.
//
// Normalization enforces the track invariants the rest of the pipeline relies
// on: chronological order, non-overlap, short gaps closed, and a soft minimum
// display duration. It is idempotent.
package segment
