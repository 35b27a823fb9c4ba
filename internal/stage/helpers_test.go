package stage

import (
	"errors"
	"testing"

	"subforge/internal/segment"
	"subforge/internal/services"
)

func TestSegmentsRoundTrip(t *testing.T) {
	segments := []segment.Segment{
		{Index: 1, Start: 0.5, End: 2.0, Original: "hello", Translation: "hola"},
		{Index: 2, Start: 2.5, End: 4.0, Original: "goodbye"},
	}
	raw, err := EncodeSegments(segments)
	if err != nil {
		t.Fatalf("EncodeSegments: %v", err)
	}
	decoded, err := ParseSegments(raw)
	if err != nil {
		t.Fatalf("ParseSegments: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d segments, want 2", len(decoded))
	}
	if decoded[0].Translation != "hola" || decoded[1].Original != "goodbye" {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestParseSegmentsRejectsEmpty(t *testing.T) {
	if _, err := ParseSegments(""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseSegmentsRejectsCorrupt(t *testing.T) {
	if _, err := ParseSegments("{not json"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
