package beats

import (
	"math"
	"testing"

	"subforge/internal/segment"
)

func TestProjectEmptyInputs(t *testing.T) {
	words := []segment.WordTiming{{Start: 0, End: 1, Word: "a"}}
	if got := Project(nil, "text", 2, ""); got != nil {
		t.Errorf("expected nil for no beats, got %v", got)
	}
	if got := Project(words, "", 2, ""); got != nil {
		t.Errorf("expected nil for empty text, got %v", got)
	}
	// Beats that are all invalid count as none.
	invalid := []segment.WordTiming{{Start: -1, End: -0.5}, {Start: 2, End: 2}}
	if got := Project(invalid, "text", 2, ""); got != nil {
		t.Errorf("expected nil for invalid beats, got %v", got)
	}
}

func TestProjectCoversFullDuration(t *testing.T) {
	words := []segment.WordTiming{
		{Start: 0.2, End: 0.8, Word: "one"},
		{Start: 0.9, End: 1.6, Word: "two"},
		{Start: 1.7, End: 2.4, Word: "three"},
	}
	out := Project(words, "uno dos tres cuatro", 3.0, "")
	if len(out) == 0 {
		t.Fatal("expected non-empty projection")
	}
	last := out[len(out)-1]
	if math.Abs(last.End-3.0) > 1e-9 {
		t.Errorf("expected final end at segment duration 3.0, got %v", last.End)
	}
	for i, wt := range out {
		if wt.End <= wt.Start {
			t.Errorf("entry %d has end <= start: %+v", i, wt)
		}
		if wt.Start < 0 || wt.End > 3.0 {
			t.Errorf("entry %d outside [0, duration]: %+v", i, wt)
		}
	}
}

func TestProjectEveryTokenAssignedInOrder(t *testing.T) {
	words := []segment.WordTiming{
		{Start: 0, End: 1, Word: "a"},
		{Start: 1, End: 2, Word: "b"},
	}
	out := Project(words, "w x y z", 2.0, "")
	if len(out) != 4 {
		t.Fatalf("expected 4 projected tokens, got %d: %+v", len(out), out)
	}
	wantWords := []string{"w", "x", "y", "z"}
	for i, wt := range out {
		if wt.Word != wantWords[i] {
			t.Errorf("token %d = %q, want %q", i, wt.Word, wantWords[i])
		}
		if i > 0 && wt.Start < out[i-1].Start {
			t.Errorf("tokens out of order at %d", i)
		}
	}
	// Tokens split evenly across the two beats.
	if out[1].End != 1.0 {
		t.Errorf("expected second token to close first beat at 1.0, got %v", out[1].End)
	}
}

func TestProjectWeightsByTokenLength(t *testing.T) {
	words := []segment.WordTiming{{Start: 0, End: 10, Word: "beat"}}
	out := Project(words, "hi elephantine", 10.0, "")
	if len(out) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(out))
	}
	short := out[0].End - out[0].Start
	long := out[1].End - out[1].Start
	if short >= long {
		t.Errorf("expected longer token to receive more time: short=%v long=%v", short, long)
	}
	// Weights are 2 and 11 characters.
	if math.Abs(short-10.0*2/13) > 1e-9 {
		t.Errorf("unexpected short token width %v", short)
	}
}

func TestProjectEmptyBucketAbsorbedByPreviousToken(t *testing.T) {
	// Three beats, two tokens: bucket assignment is floor(i*3/2) -> beats 0
	// and 1; beat 2 is empty and must be absorbed.
	words := []segment.WordTiming{
		{Start: 0, End: 1, Word: "a"},
		{Start: 1, End: 2, Word: "b"},
		{Start: 3, End: 4, Word: "c"},
	}
	out := Project(words, "x y", 4.0, "")
	if len(out) != 2 {
		t.Fatalf("expected 2 tokens, got %d: %+v", len(out), out)
	}
	if math.Abs(out[1].End-4.0) > 1e-9 {
		t.Errorf("expected last token stretched through empty beat to 4.0, got %v", out[1].End)
	}
}

func TestProjectClampsToDuration(t *testing.T) {
	// Beats extend past the segment duration.
	words := []segment.WordTiming{{Start: 0, End: 5, Word: "a"}}
	out := Project(words, "x y", 3.0, "")
	for _, wt := range out {
		if wt.End > 3.0 {
			t.Errorf("entry exceeds duration: %+v", wt)
		}
	}
	if len(out) == 0 || math.Abs(out[len(out)-1].End-3.0) > 1e-9 {
		t.Errorf("expected final end clamped to 3.0, got %+v", out)
	}
}

func TestProjectPerCharacterLanguage(t *testing.T) {
	words := []segment.WordTiming{
		{Start: 0, End: 1, Word: "hello"},
		{Start: 1, End: 2, Word: "world"},
	}
	out := Project(words, "你好世界", 2.0, "zh")
	if len(out) != 4 {
		t.Fatalf("expected 4 character tokens, got %d", len(out))
	}
	if out[0].Word != "你" || out[3].Word != "界" {
		t.Errorf("unexpected token text: %+v", out)
	}
}
