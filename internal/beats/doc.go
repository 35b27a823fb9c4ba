// Package beats projects translated text onto the word-level timing of the
// original-language transcription, enabling karaoke-accurate dual subtitle
// display.
package beats
