// Package timecode converts between SRT timestamps and seconds.
package timecode
