// Package ffmpeg invokes the ffmpeg binary for the render pipeline: audio
// extraction, PNG-sequence-to-overlay encoding, and overlay muxing. Long
// encodes stream machine-readable progress over stdout, parsed into percent
// callbacks against the expected duration.
package ffmpeg
