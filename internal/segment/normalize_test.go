package segment

import (
	"math"
	"testing"
)

func TestNormalizeSortsAndReindexes(t *testing.T) {
	input := []Segment{
		{Index: 7, Start: 20, End: 25, Original: "second"},
		{Index: 3, Start: 0, End: 5, Original: "first"},
	}
	out := Normalize(input)
	if len(out) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(out))
	}
	if out[0].Original != "first" || out[1].Original != "second" {
		t.Errorf("segments not sorted by start: %+v", out)
	}
	if out[0].Index != 1 || out[1].Index != 2 {
		t.Errorf("expected sequential reindex, got %d, %d", out[0].Index, out[1].Index)
	}
}

func TestNormalizeClampsOverlap(t *testing.T) {
	input := []Segment{
		{Start: 0, End: 10, Original: "a"},
		{Start: 8, End: 15, Original: "b"},
	}
	out := Normalize(input)
	if out[1].Start != 10 {
		t.Errorf("expected overlapping start clamped to 10, got %v", out[1].Start)
	}
	if out[0].End > out[1].Start {
		t.Errorf("overlap remains: %v > %v", out[0].End, out[1].Start)
	}
}

func TestNormalizeJoinsShortGaps(t *testing.T) {
	input := []Segment{
		{Start: 0, End: 4, Original: "a"},
		{Start: 6, End: 10, Original: "b"}, // 2s gap, joined
		{Start: 20, End: 24, Original: "c"}, // 10s gap, kept
	}
	out := Normalize(input)
	if out[0].End != 6 {
		t.Errorf("expected first cue extended to 6, got %v", out[0].End)
	}
	if out[1].End != 10 {
		t.Errorf("expected second cue end unchanged at 10, got %v", out[1].End)
	}
	if gap := out[2].Start - out[1].End; gap != 10 {
		t.Errorf("expected long gap preserved, got %v", gap)
	}
}

func TestNormalizeMinimumDuration(t *testing.T) {
	input := []Segment{
		{Start: 0, End: 1, Original: "short with room"},
		{Start: 30, End: 31, Original: "short before neighbor"},
		{Start: 32, End: 40, Original: "neighbor"},
	}
	out := Normalize(input)
	if out[0].Duration() < minDurationSeconds {
		t.Errorf("expected first cue extended to minimum duration, got %v", out[0].Duration())
	}
	// Second cue can only extend to the next cue's start.
	if out[1].End != 32 {
		t.Errorf("expected second cue capped at next start 32, got %v", out[1].End)
	}
}

func TestNormalizeNeverOverlapsToSatisfyMinimum(t *testing.T) {
	input := []Segment{
		{Start: 0, End: 0.5, Original: "a"},
		{Start: 0.5, End: 10, Original: "b"},
	}
	out := Normalize(input)
	if out[0].End > out[1].Start {
		t.Errorf("minimum-duration extension overlapped next cue: %v > %v", out[0].End, out[1].Start)
	}
}

func TestNormalizeDropsFullyNestedCueWithoutRoom(t *testing.T) {
	input := []Segment{
		{Start: 0, End: 10, Original: "outer"},
		{Start: 1, End: 2, Original: "nested"},
		{Start: 10, End: 13, Original: "next"},
	}
	out := Normalize(input)
	if len(out) != 2 {
		t.Fatalf("expected nested cue dropped, got %d segments: %+v", len(out), out)
	}
	if out[0].Original != "outer" || out[1].Original != "next" {
		t.Errorf("wrong cues survived: %+v", out)
	}
	for i, seg := range out {
		if seg.End <= seg.Start {
			t.Errorf("segment %d has no width: [%v, %v]", i, seg.Start, seg.End)
		}
		if seg.Index != i+1 {
			t.Errorf("expected sequential reindex after drop, got %d at %d", seg.Index, i)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := [][]Segment{
		{
			{Start: 5, End: 6, Original: "b"},
			{Start: 0, End: 1, Original: "a"},
			{Start: 5.5, End: 9, Original: "c"},
		},
		{
			{Start: 0, End: 2, Original: "a"},
			{Start: 3, End: 4, Original: "b"},
			{Start: 60, End: 61, Original: "c"},
		},
		nil,
	}
	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if len(once) != len(twice) {
			t.Fatalf("length changed on re-normalize: %d vs %d", len(once), len(twice))
		}
		for i := range once {
			if math.Abs(once[i].Start-twice[i].Start) > 1e-9 || math.Abs(once[i].End-twice[i].End) > 1e-9 {
				t.Errorf("segment %d changed on re-normalize: %+v vs %+v", i, once[i], twice[i])
			}
			if once[i].Index != twice[i].Index {
				t.Errorf("index %d changed on re-normalize", i)
			}
		}
	}
}

func TestNormalizeNonOverlapInvariant(t *testing.T) {
	input := []Segment{
		{Start: 0, End: 12, Original: "a"},
		{Start: 3, End: 5, Original: "b"},
		{Start: 4, End: 20, Original: "c"},
		{Start: 40, End: 40.5, Original: "d"},
	}
	out := Normalize(input)
	for i := 1; i < len(out); i++ {
		if out[i-1].End > out[i].Start {
			t.Errorf("cues %d/%d overlap: %v > %v", i-1, i, out[i-1].End, out[i].Start)
		}
	}
}
