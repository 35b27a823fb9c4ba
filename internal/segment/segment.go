package segment

import "strings"

// WordTiming is a word-level time span from the original-language
// transcription. It is owned by its parent Segment and never mutated after
// creation.
type WordTiming struct {
	Start float64
	End   float64
	Word  string
}

// Segment is one timed subtitle cue. The transcription stage creates one per
// detected speech span; later stages mutate text (scrubbing), translation
// (translate/review), and timing (normalize) in place.
type Segment struct {
	ID           string
	Index        int
	Start        float64
	End          float64
	Original     string
	Translation  string
	AvgLogprob   float64
	NoSpeechProb float64
	Words        []WordTiming
	// TranslatedWords carries the translation projected onto the original
	// word beats; populated after translation when word timings exist.
	TranslatedWords []WordTiming
}

// Duration returns the cue's visible span in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// DisplayMode selects which text a cue renders.
type DisplayMode string

const (
	DisplayOriginal    DisplayMode = "original"
	DisplayTranslation DisplayMode = "translation"
	DisplayDual        DisplayMode = "dual"
)

// ParseDisplayMode converts a string into a known DisplayMode, defaulting to
// dual for unrecognized values.
func ParseDisplayMode(value string) DisplayMode {
	switch DisplayMode(strings.ToLower(strings.TrimSpace(value))) {
	case DisplayOriginal:
		return DisplayOriginal
	case DisplayTranslation:
		return DisplayTranslation
	default:
		return DisplayDual
	}
}

// ComposeCue renders a segment's original/translation pair into the one or two
// line cue string for the given display mode.
func ComposeCue(seg Segment, mode DisplayMode) string {
	original := strings.TrimSpace(seg.Original)
	translation := strings.TrimSpace(seg.Translation)
	switch mode {
	case DisplayOriginal:
		if original == "" {
			return translation
		}
		return original
	case DisplayTranslation:
		if translation == "" {
			return original
		}
		return translation
	default:
		if translation == "" || translation == original {
			return original
		}
		return original + "\n" + translation
	}
}
