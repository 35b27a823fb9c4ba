package beats

import (
	"sort"
	"unicode/utf8"

	"subforge/internal/segment"
)

// Project distributes translated text across the time beats of the original
// speech, producing word-level timing for the translated text anchored to the
// original rhythm. Tokens are assigned to beats by index-proportional
// bucketing, so every beat receives a contiguous, order-preserving run of
// tokens. Within a beat, time is shared by token character length. The result
// always covers the segment through its full duration.
func Project(originalWords []segment.WordTiming, translatedText string, segmentDuration float64, langHint string) []segment.WordTiming {
	beats := usableBeats(originalWords)
	if len(beats) == 0 {
		return nil
	}
	tokens := Tokenize(translatedText, langHint)
	if len(tokens) == 0 {
		return nil
	}

	n := len(beats)
	m := len(tokens)
	buckets := make([][]string, n)
	for i, token := range tokens {
		bucket := i * n / m
		buckets[bucket] = append(buckets[bucket], token)
	}

	var out []segment.WordTiming
	for b, beat := range beats {
		assigned := buckets[b]
		if len(assigned) == 0 {
			// Empty beat: stretch the previous token across it so the text
			// stays visible through the original speech span.
			if len(out) > 0 {
				if beat.End > out[len(out)-1].End {
					out[len(out)-1].End = beat.End
				}
			} else {
				out = append(out, segment.WordTiming{Start: beat.Start, End: beat.End})
			}
			continue
		}
		totalWeight := 0
		for _, token := range assigned {
			totalWeight += tokenWeight(token)
		}
		cursor := beat.Start
		for i, token := range assigned {
			width := (beat.End - beat.Start) * float64(tokenWeight(token)) / float64(totalWeight)
			end := cursor + width
			if i == len(assigned)-1 {
				end = beat.End // last token absorbs rounding
			}
			out = append(out, segment.WordTiming{Start: cursor, End: end, Word: token})
			cursor = end
		}
	}

	if len(out) > 0 {
		tail := maxFloat(beats[len(beats)-1].End, segmentDuration)
		if tail > out[len(out)-1].End {
			out[len(out)-1].End = tail
		}
	}

	clamped := out[:0]
	for _, wt := range out {
		if wt.Start < 0 {
			wt.Start = 0
		}
		if wt.End > segmentDuration {
			wt.End = segmentDuration
		}
		if wt.End <= wt.Start {
			continue
		}
		clamped = append(clamped, wt)
	}
	sort.SliceStable(clamped, func(i, j int) bool {
		return clamped[i].Start < clamped[j].Start
	})
	return clamped
}

func usableBeats(words []segment.WordTiming) []segment.WordTiming {
	beats := make([]segment.WordTiming, 0, len(words))
	for _, w := range words {
		if w.Start < 0 || w.End <= w.Start {
			continue
		}
		beats = append(beats, w)
	}
	sort.SliceStable(beats, func(i, j int) bool {
		return beats[i].Start < beats[j].Start
	})
	return beats
}

func tokenWeight(token string) int {
	if n := utf8.RuneCountInString(token); n > 1 {
		return n
	}
	return 1
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
