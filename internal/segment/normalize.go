package segment

import "sort"

// Normalization policy. Gaps shorter than joinGapSeconds are closed by
// extending the previous cue; cues shorter than minDurationSeconds are
// extended when the next cue leaves room.
const (
	joinGapSeconds     = 5.0
	minDurationSeconds = 3.0
)

// Normalize returns a sorted, reindexed, non-overlapping copy of the input
// track. It never shrinks a cue below its input duration and never extends a
// cue past the next cue's start. Running Normalize on its own output is a
// no-op.
func Normalize(segments []Segment) []Segment {
	out := make([]Segment, len(segments))
	copy(out, segments)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})

	for i := range out {
		if i > 0 {
			prev := &out[i-1]
			cur := &out[i]
			// Clamp overlapping starts forward to the previous end. A cue
			// nested entirely inside its predecessor collapses here and
			// relies on the minimum-duration extension below for width.
			if cur.Start < prev.End {
				cur.Start = prev.End
				if cur.End < cur.Start {
					cur.End = cur.Start
				}
			}
			// Close short dead air by extending the previous cue.
			if gap := cur.Start - prev.End; gap > 0 && gap < joinGapSeconds {
				prev.End = cur.Start
			}
		}
		// Enforce the minimum display duration where room exists before the
		// next cue.
		if out[i].Duration() < minDurationSeconds {
			target := out[i].Start + minDurationSeconds
			if i+1 < len(out) && target > out[i+1].Start {
				target = out[i+1].Start
			}
			if target > out[i].End {
				out[i].End = target
			}
		}
	}

	// The duration extensions above can tighten a gap below the join
	// threshold; a second pass re-closes those.
	for i := 1; i < len(out); i++ {
		if gap := out[i].Start - out[i-1].End; gap > 0 && gap < joinGapSeconds {
			out[i-1].End = out[i].Start
		}
	}

	// A cue nested inside its predecessor can collapse to zero width when
	// the next cue leaves no room to re-extend it. Cues must keep End above
	// Start, so drop the collapsed ones instead of serializing them.
	kept := out[:0]
	for _, seg := range out {
		if seg.End > seg.Start {
			kept = append(kept, seg)
		}
	}
	out = kept

	for i := range out {
		out[i].Index = i + 1
	}
	return out
}
