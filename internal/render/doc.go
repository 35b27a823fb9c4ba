// Package render drives subtitle burn-in: a headless browser rasterizes one
// transparent PNG per subtitle event, the stills become an alpha-preserving
// overlay clip, and the overlay is muxed onto the base video (or a black
// canvas). Each state maps onto its own progress band; the bar only reaches
// 100 when the final merge confirms a zero exit. Cancellation at any point
// deletes the operation's temp artifacts and emits a Cancelled update.
package render
