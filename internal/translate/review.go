package translate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"subforge/internal/logging"
	"subforge/internal/progress"
	"subforge/internal/segment"
	"subforge/internal/services"
	"subforge/internal/services/llm"
)

const (
	// reviewWindowSize is how many segments each review call rewrites.
	reviewWindowSize = 30
	// reviewContextSize is how many surrounding segments are sent for
	// coherence without being rewritten.
	reviewContextSize = 15
	// reviewCoverage is the share of window indices that must appear in the
	// response before the rewrite is accepted.
	reviewCoverage = 0.9
)

var reviewLineRe = regexp.MustCompile(`@@SUB_LINE@@\s*(\d+)\s*:\s?(.*)`)

// Review runs the stylistic edit pass over already-translated segments in
// sliding windows, sending lookback and lookahead context with each window.
// A malformed response only discards that window's edits; the operation
// itself fails only on cancellation or quota exhaustion.
func (t *Translator) Review(ctx context.Context, segments []segment.Segment, reporter progress.Reporter) ([]segment.Segment, error) {
	if t == nil || t.client == nil {
		return nil, services.Wrap(services.ErrConfiguration, "translate", "review", "chat client required", nil)
	}
	if reporter == nil {
		reporter = progress.Discard
	}
	out := make([]segment.Segment, len(segments))
	copy(out, segments)
	total := len(out)
	for offset := 0; offset < total; offset += reviewWindowSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := offset + reviewWindowSize
		if end > total {
			end = total
		}
		ctxStart := offset - reviewContextSize
		if ctxStart < 0 {
			ctxStart = 0
		}
		ctxEnd := end + reviewContextSize
		if ctxEnd > total {
			ctxEnd = total
		}
		reviewed, err := t.ReviewBatch(ctx, out[offset:end], out[ctxStart:offset], out[end:ctxEnd])
		if err != nil {
			return nil, err
		}
		copy(out[offset:end], reviewed)
		reporter.Report(progress.Update{
			Percent: float64(end) / float64(total) * 100,
			Stage:   "Reviewing translation",
			Current: end,
			Total:   total,
		})
	}
	return out, nil
}

// ReviewBatch polishes one window of translated segments. The before and
// after slices are surrounding context sent for coherence but never rewritten.
// The model response must cover at least 90% of the window's indices with no
// duplicates; otherwise the window is returned unchanged.
func (t *Translator) ReviewBatch(ctx context.Context, window, before, after []segment.Segment) ([]segment.Segment, error) {
	out := make([]segment.Segment, len(window))
	copy(out, window)
	if len(out) == 0 {
		return out, nil
	}

	response, err := t.client.Complete(ctx, []llm.Message{
		{Role: "system", Content: buildReviewSystemPrompt()},
		{Role: "user", Content: buildReviewUserPrompt(window, before, after)},
	}, llm.Options{})
	if err != nil {
		if services.IsTerminal(err) {
			return nil, err
		}
		t.logger.Warn("review call failed; keeping window unchanged",
			logging.Int("window_size", len(window)),
			logging.Error(err),
			logging.String(logging.FieldEventType, "review_window_fallback"),
		)
		return out, nil
	}

	edits := make(map[int]string, len(window))
	duplicate := false
	for _, match := range reviewLineRe.FindAllStringSubmatch(response, -1) {
		index, err := strconv.Atoi(match[1])
		if err != nil || index < 1 || index > len(window) {
			continue
		}
		if _, seen := edits[index-1]; seen {
			duplicate = true
			break
		}
		edits[index-1] = strings.TrimSpace(match[2])
	}

	// Quality gate: duplicate indices or thin coverage mean the model lost
	// line alignment, so the whole window's edits are discarded.
	if duplicate || float64(len(edits)) < reviewCoverage*float64(len(window)) {
		t.logger.Warn("review response failed quality gate; keeping window unchanged",
			logging.Int("window_size", len(window)),
			logging.Int("covered", len(edits)),
			logging.Bool("duplicate_indices", duplicate),
			logging.String(logging.FieldEventType, "review_quality_gate"),
		)
		return out, nil
	}

	for i := range out {
		if text, ok := edits[i]; ok && text != "" {
			out[i].Translation = text
		}
	}
	return out, nil
}

func buildReviewSystemPrompt() string {
	return `You are a subtitle copy editor. You receive translated subtitle lines plus surrounding context.

Rules:
- Polish only the numbered lines for fluency and consistent style.
- Context lines are read-only; never rewrite or emit them.
- Never merge, split, omit, or reorder lines.
- Respond with one line per numbered input line, each formatted exactly as:
@@SUB_LINE@@ <number>: <text>`
}

func buildReviewUserPrompt(window, before, after []segment.Segment) string {
	var b strings.Builder
	if len(before) > 0 {
		b.WriteString("Context before:\n")
		for _, seg := range before {
			fmt.Fprintf(&b, "  %s\n", seg.Translation)
		}
	}
	b.WriteString("Lines to review:\n")
	for i, seg := range window {
		fmt.Fprintf(&b, "@@SUB_LINE@@ %d: %s\n", i+1, seg.Translation)
	}
	if len(after) > 0 {
		b.WriteString("Context after:\n")
		for _, seg := range after {
			fmt.Fprintf(&b, "  %s\n", seg.Translation)
		}
	}
	return b.String()
}
