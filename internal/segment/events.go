package segment

import (
	"math"
	"sort"
	"strings"
)

// Event is the render-stage projection of a subtitle track: the text visible
// from TimeMs until the next event. An empty Text means nothing is shown.
type Event struct {
	TimeMs int64
	Text   string
}

// EventsFromSegments flattens segments into a time-sorted event sequence for
// frame-by-frame rendering. A blank event is inserted wherever a gap opens
// between cues, and consecutive events with identical text are collapsed,
// keeping the first. Segments carrying projected word timings expand into
// per-word events so the translation appears at the original speech rhythm.
func EventsFromSegments(segments []Segment, mode DisplayMode) []Event {
	events := make([]Event, 0, len(segments)*2)
	for _, seg := range segments {
		if mode != DisplayOriginal && len(seg.TranslatedWords) > 0 && strings.TrimSpace(seg.Translation) != "" {
			events = append(events, wordEvents(seg, mode)...)
			continue
		}
		text := strings.TrimSpace(ComposeCue(seg, mode))
		if text == "" {
			continue
		}
		events = append(events, Event{TimeMs: toMillis(seg.Start), Text: text})
		events = append(events, Event{TimeMs: toMillis(seg.End), Text: ""})
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TimeMs < events[j].TimeMs
	})

	// Later events at the same millisecond win: a cue starting exactly where
	// the previous one ends must not flash blank.
	deduped := events[:0]
	for _, event := range events {
		if len(deduped) > 0 && deduped[len(deduped)-1].TimeMs == event.TimeMs {
			if event.Text != "" || deduped[len(deduped)-1].Text == "" {
				deduped[len(deduped)-1] = event
			}
			continue
		}
		deduped = append(deduped, event)
	}

	collapsed := make([]Event, 0, len(deduped))
	for _, event := range deduped {
		if len(collapsed) > 0 && collapsed[len(collapsed)-1].Text == event.Text {
			continue
		}
		collapsed = append(collapsed, event)
	}
	return collapsed
}

// wordEvents reveals the translation one projected word at a time. Dual mode
// keeps the original text pinned on the first line.
func wordEvents(seg Segment, mode DisplayMode) []Event {
	original := strings.TrimSpace(seg.Original)
	translation := strings.TrimSpace(seg.Translation)
	prefixes := wordPrefixes(translation, seg.TranslatedWords)

	events := make([]Event, 0, len(prefixes)+1)
	for i, wt := range seg.TranslatedWords {
		text := prefixes[i]
		if mode == DisplayDual && original != "" {
			text = original + "\n" + text
		}
		events = append(events, Event{TimeMs: toMillis(wt.Start), Text: text})
	}
	events = append(events, Event{TimeMs: toMillis(seg.End), Text: ""})
	return events
}

// wordPrefixes maps each timed word to the translation prefix visible once it
// lands. Words are matched left-to-right against the full text so original
// spacing and punctuation survive; a word the text no longer contains reveals
// the rest of the string.
func wordPrefixes(text string, words []WordTiming) []string {
	prefixes := make([]string, len(words))
	pos := 0
	for i, wt := range words {
		word := strings.TrimSpace(wt.Word)
		if word != "" {
			if idx := strings.Index(text[pos:], word); idx >= 0 {
				pos += idx + len(word)
			} else {
				pos = len(text)
			}
		}
		prefixes[i] = strings.TrimSpace(text[:pos])
	}
	return prefixes
}

func toMillis(seconds float64) int64 {
	if math.IsNaN(seconds) || seconds < 0 {
		return 0
	}
	return int64(math.Round(seconds * 1000))
}
