// Package scrub removes hallucinated phrases, spam, and premature outro
// artifacts from raw transcription output. A language-model pass classifies
// each line (keep, clean, delete) and a deterministic local cleanup repairs
// formatting the model may mangle, preserving sentence punctuation and
// digit-group commas.
package scrub
