// Package ffprobe wraps ffprobe metadata inspection for media containers.
package ffprobe
