package scrub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"subforge/internal/progress"
	"subforge/internal/segment"
	"subforge/internal/services"
	"subforge/internal/services/llm"
)

type fakeChat struct {
	respond func(call int, messages []llm.Message) (string, error)
	calls   int
}

func (f *fakeChat) Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.calls++
	return f.respond(f.calls, messages)
}

func echoResponder(call int, messages []llm.Message) (string, error) {
	// Echo every input line back unchanged.
	user := messages[len(messages)-1].Content
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(user), "\n") {
		idx := strings.Index(line, " @ ")
		if idx < 0 {
			continue
		}
		rest := line[idx+3:]
		colon := strings.Index(rest, ": ")
		out = append(out, fmt.Sprintf("@@LINE@@ %s: %s", line[:idx], rest[colon+2:]))
	}
	return strings.Join(out, "\n"), nil
}

func testSegments(texts ...string) []segment.Segment {
	segments := make([]segment.Segment, len(texts))
	for i, text := range texts {
		segments[i] = segment.Segment{
			ID:       fmt.Sprintf("seg-%d", i),
			Index:    i + 1,
			Start:    float64(i) * 5,
			End:      float64(i)*5 + 4,
			Original: text,
		}
	}
	return segments
}

func TestScrubKeepsCleanText(t *testing.T) {
	scrubber := NewScrubber(&fakeChat{respond: echoResponder}, nil)
	segments := testSegments("Hello there.", "General Kenobi.")
	out, err := scrubber.Run(context.Background(), segments, 100, progress.Discard)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(out))
	}
	if out[0].Original != "Hello there." {
		t.Errorf("text changed: %q", out[0].Original)
	}
}

func TestScrubPreservesDigitGroupCommas(t *testing.T) {
	scrubber := NewScrubber(&fakeChat{respond: echoResponder}, nil)
	segments := testSegments("The budget is 1,250,000 dollars.")
	out, err := scrubber.Run(context.Background(), segments, 3600, progress.Discard)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out[0].Original, "1,250,000") {
		t.Errorf("digit-group commas lost: %q", out[0].Original)
	}
}

func TestScrubRepairsSpacedDigitCommas(t *testing.T) {
	chat := &fakeChat{respond: func(call int, messages []llm.Message) (string, error) {
		return "@@LINE@@ 0: The budget is 1, 250, 000 dollars.", nil
	}}
	scrubber := NewScrubber(chat, nil)
	out, err := scrubber.Run(context.Background(), testSegments("x"), 3600, progress.Discard)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out[0].Original, "1,250,000") {
		t.Errorf("expected repaired digit grouping, got %q", out[0].Original)
	}
}

func TestScrubDropsDeletedSegments(t *testing.T) {
	chat := &fakeChat{respond: func(call int, messages []llm.Message) (string, error) {
		return "@@LINE@@ 0: Real speech.\n@@LINE@@ 1:", nil
	}}
	scrubber := NewScrubber(chat, nil)
	out, err := scrubber.Run(context.Background(), testSegments("Real speech.", "buy followers at spam dot com"), 100, progress.Discard)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 segment after deletion, got %d", len(out))
	}
	if out[0].Original != "Real speech." {
		t.Errorf("wrong survivor: %q", out[0].Original)
	}
}

func TestScrubDropsPureSymbolNoise(t *testing.T) {
	// Even if the model echoes the line, the local cleanup strips pictograph
	// runs and the now-empty segment is dropped.
	scrubber := NewScrubber(&fakeChat{respond: echoResponder}, nil)
	out, err := scrubber.Run(context.Background(), testSegments("★★★★★★★★★★"), 100, progress.Discard)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected symbol-only segment dropped, got %+v", out)
	}
}

func TestScrubRetainsTextOnParseMiss(t *testing.T) {
	chat := &fakeChat{respond: func(call int, messages []llm.Message) (string, error) {
		// Response covers only index 0; index 1 missing.
		return "@@LINE@@ 0: Kept line.", nil
	}}
	scrubber := NewScrubber(chat, nil)
	out, err := scrubber.Run(context.Background(), testSegments("a", "untouched original"), 100, progress.Discard)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(out))
	}
	if out[1].Original != "untouched original" {
		t.Errorf("parse miss should retain original, got %q", out[1].Original)
	}
}

func TestScrubBatchIsolation(t *testing.T) {
	texts := make([]string, 150)
	for i := range texts {
		texts[i] = fmt.Sprintf("line %d", i)
	}
	chat := &fakeChat{respond: func(call int, messages []llm.Message) (string, error) {
		if call == 1 {
			return "", errors.New("provider blew up")
		}
		return echoResponder(call, messages)
	}}
	scrubber := NewScrubber(chat, nil)
	out, err := scrubber.Run(context.Background(), testSegments(texts...), 1000, progress.Discard)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 150 {
		t.Fatalf("expected all 150 segments retained, got %d", len(out))
	}
	if chat.calls != 2 {
		t.Errorf("expected 2 batch calls, got %d", chat.calls)
	}
}

func TestScrubTerminalErrorsPropagate(t *testing.T) {
	chat := &fakeChat{respond: func(call int, messages []llm.Message) (string, error) {
		return "", services.ErrInsufficientCredits
	}}
	scrubber := NewScrubber(chat, nil)
	_, err := scrubber.Run(context.Background(), testSegments("a"), 100, progress.Discard)
	if !errors.Is(err, services.ErrInsufficientCredits) {
		t.Fatalf("expected credits error to propagate, got %v", err)
	}
}

func TestScrubCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scrubber := NewScrubber(&fakeChat{respond: echoResponder}, nil)
	_, err := scrubber.Run(ctx, testSegments("a"), 100, progress.Discard)
	if !services.IsCancelled(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
