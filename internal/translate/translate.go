package translate

import (
	"context"
	"fmt"
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

// translateBatchSize bounds the number of lines sent per translation prompt.
const translateBatchSize = 30

var translatedLineRe = regexp.MustCompile(`(?m)^Line (\d+):\s?(.*)$`)

// ChatClient is the completion capability the translator needs.
type ChatClient interface {
	Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error)
}

// Translator produces line-preserving translations of segment text and runs
// the stylistic review pass over already-translated segments. Transient
// provider failures are retried inside the chat client; the translator issues
// one call per batch and degrades to identity fallback when that call fails.
type Translator struct {
	client ChatClient
	logger *slog.Logger
}

// NewTranslator constructs a translator backed by the given chat client.
func NewTranslator(client ChatClient, logger *slog.Logger) *Translator {
	return &Translator{
		client: client,
		logger: logging.NewComponentLogger(logger, "translate"),
	}
}

// Run translates all segments into targetLang in fixed-size batches and
// reports cumulative progress. The returned slice always has the same length
// and order as the input. Only cancellation and quota exhaustion produce an
// error; every other failure degrades to identity translation for the
// affected batch.
func (t *Translator) Run(ctx context.Context, segments []segment.Segment, targetLang string, reporter progress.Reporter) ([]segment.Segment, error) {
	if t == nil || t.client == nil {
		return nil, services.Wrap(services.ErrConfiguration, "translate", "run", "chat client required", nil)
	}
	if reporter == nil {
		reporter = progress.Discard
	}
	out := make([]segment.Segment, len(segments))
	copy(out, segments)
	total := len(out)
	for offset := 0; offset < total; offset += translateBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := offset + translateBatchSize
		if end > total {
			end = total
		}
		translated, err := t.TranslateBatch(ctx, out[offset:end], targetLang)
		if err != nil {
			return nil, err
		}
		copy(out[offset:end], translated)
		reporter.Report(progress.Update{
			Percent: float64(end) / float64(total) * 100,
			Stage:   "Translating subtitles",
			Current: end,
			Total:   total,
		})
	}
	return out, nil
}

// TranslateBatch translates one batch of segments. The result has exactly the
// same length and order as the input; lines the model skipped or echoed back
// untranslated fall back to the last good translation in the batch, and a
// batch whose provider call fails after the client's own retries falls back
// to identity translation.
func (t *Translator) TranslateBatch(ctx context.Context, batch []segment.Segment, targetLang string) ([]segment.Segment, error) {
	out := make([]segment.Segment, len(batch))
	copy(out, batch)
	if len(out) == 0 {
		return out, nil
	}

	response, err := t.client.Complete(ctx, []llm.Message{
		{Role: "system", Content: buildTranslateSystemPrompt(targetLang)},
		{Role: "user", Content: buildTranslateUserPrompt(batch)},
	}, llm.Options{})
	if err != nil {
		if services.IsTerminal(err) {
			return nil, err
		}
		t.logger.Warn("translation batch failed; using identity fallback",
			logging.Int("batch_size", len(batch)),
			logging.Error(err),
			logging.String(logging.FieldEventType, "translate_identity_fallback"),
		)
		for i := range out {
			out[i].Translation = out[i].Original
		}
		return out, nil
	}

	parsed := make(map[int]string, len(batch))
	for _, match := range translatedLineRe.FindAllStringSubmatch(response, -1) {
		index, err := strconv.Atoi(match[1])
		if err != nil || index < 1 || index > len(batch) {
			continue
		}
		parsed[index-1] = strings.TrimSpace(match[2])
	}

	// Lines the model skipped or echoed back unchanged reuse the last good
	// translation so an echoing model never leaks source text into the
	// translated track.
	lastGood := ""
	for i := range out {
		translation, ok := parsed[i]
		if ok && translation != "" && translation != out[i].Original {
			lastGood = translation
			out[i].Translation = translation
			continue
		}
		if lastGood != "" {
			out[i].Translation = lastGood
		} else {
			out[i].Translation = out[i].Original
		}
	}
	return out, nil
}

func buildTranslateSystemPrompt(targetLang string) string {
	return fmt.Sprintf(`You are a subtitle translator. Translate every line into %s.

Rules:
- Translate line by line. Never merge, split, omit, or reorder lines.
- Keep the meaning and tone; keep proper nouns as-is.
- Respond with one line per input line, each formatted exactly as:
Line <number>: <translated text>`, targetLang)
}

func buildTranslateUserPrompt(batch []segment.Segment) string {
	var b strings.Builder
	for i, seg := range batch {
		fmt.Fprintf(&b, "Line %d: %s\n", i+1, seg.Original)
	}
	return b.String()
}
