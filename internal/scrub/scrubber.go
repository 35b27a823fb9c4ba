package scrub

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"subforge/internal/logging"
	"subforge/internal/progress"
	"subforge/internal/segment"
	"subforge/internal/services"
	"subforge/internal/services/llm"
)

// batchSize bounds prompt size for large transcripts.
const batchSize = 100

var lineResponseRe = regexp.MustCompile(`@@LINE@@\s*(\d+)\s*:\s?(.*)`)

// ChatClient is the completion capability the scrubber needs.
type ChatClient interface {
	Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error)
}

// Scrubber removes hallucinated and spam content from raw transcription
// output using a language-model noise filter plus a deterministic local
// cleanup pass.
type Scrubber struct {
	client ChatClient
	logger *slog.Logger
}

// NewScrubber constructs a scrubber backed by the given chat client.
func NewScrubber(client ChatClient, logger *slog.Logger) *Scrubber {
	return &Scrubber{client: client, logger: logging.NewComponentLogger(logger, "scrub")}
}

// Run scrubs the segments in fixed-size batches. Batches are processed
// sequentially; a provider failure in one batch retains that batch's original
// text and never corrupts segments from other batches. Segments whose final
// text is empty are dropped. Cancellation and quota exhaustion propagate.
func (s *Scrubber) Run(ctx context.Context, segments []segment.Segment, videoLengthSec float64, reporter progress.Reporter) ([]segment.Segment, error) {
	if s == nil || s.client == nil {
		return nil, services.Wrap(services.ErrConfiguration, "scrub", "run", "chat client required", nil)
	}
	if reporter == nil {
		reporter = progress.Discard
	}
	out := make([]segment.Segment, 0, len(segments))
	total := len(segments)
	for offset := 0; offset < total; offset += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := offset + batchSize
		if end > total {
			end = total
		}
		batch := segments[offset:end]
		cleanedTexts, err := s.scrubBatch(ctx, batch, videoLengthSec)
		if err != nil {
			if services.IsTerminal(err) {
				return nil, err
			}
			// Batch isolation: keep this batch's original text and move on.
			s.logger.Warn("scrub batch failed; keeping original text",
				logging.Int("batch_start", offset),
				logging.Error(err),
				logging.String(logging.FieldEventType, "scrub_batch_fallback"),
			)
			cleanedTexts = make([]string, len(batch))
			for i, seg := range batch {
				cleanedTexts[i] = seg.Original
			}
		}
		for i, seg := range batch {
			text := cleanLine(cleanedTexts[i])
			if text == "" {
				continue
			}
			seg.Original = text
			out = append(out, seg)
		}
		reporter.Report(progress.Update{
			Percent: float64(end) / float64(total) * 100,
			Stage:   "Scrubbing transcript",
			Current: end,
			Total:   total,
		})
	}
	return out, nil
}

// scrubBatch sends one batch through the model and maps the response back by
// line index. Any index missing from the response retains its original text.
func (s *Scrubber) scrubBatch(ctx context.Context, batch []segment.Segment, videoLengthSec float64) ([]string, error) {
	lines := make([]promptLine, len(batch))
	for i, seg := range batch {
		lines[i] = promptLine{index: i, startSec: seg.Start, text: seg.Original}
	}
	response, err := s.client.Complete(ctx, []llm.Message{
		{Role: "system", Content: buildSystemPrompt(videoLengthSec)},
		{Role: "user", Content: buildUserPrompt(lines)},
	}, llm.Options{})
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(batch))
	for i, seg := range batch {
		texts[i] = seg.Original
	}
	replied := make(map[int]bool, len(batch))
	for _, raw := range strings.Split(response, "\n") {
		match := lineResponseRe.FindStringSubmatch(raw)
		if match == nil {
			continue
		}
		index, err := strconv.Atoi(match[1])
		if err != nil || index < 0 || index >= len(batch) {
			continue
		}
		if replied[index] {
			continue
		}
		replied[index] = true
		texts[index] = match[2]
	}
	return texts, nil
}
