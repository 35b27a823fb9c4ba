package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"subforge/internal/beats"
	"subforge/internal/language"
	"subforge/internal/logging"
	"subforge/internal/progress"
	"subforge/internal/queue"
	"subforge/internal/segment"
	"subforge/internal/services"
	"subforge/internal/stage"
	"subforge/internal/textutil"
)

// Stage adapts the translator (and optional reviewer) to the queue pipeline
// contract.
type Stage struct {
	store      *queue.Store
	translator *Translator
	review     bool
	logger     *slog.Logger
}

// NewStage wires a translator into the workflow. When review is true the
// translated segments go through the review pass before being stored.
func NewStage(store *queue.Store, client ChatClient, logger *slog.Logger, review bool) *Stage {
	return &Stage{
		store:      store,
		translator: NewTranslator(client, logger),
		review:     review,
		logger:     logging.NewComponentLogger(logger, "translate-stage"),
	}
}

// Prepare validates the payload and the target language.
func (s *Stage) Prepare(_ context.Context, job *queue.Job) error {
	if _, err := stage.ParseSegments(job.SegmentsJSON); err != nil {
		return err
	}
	if strings.TrimSpace(job.TargetLanguage) == "" {
		return services.Wrap(services.ErrValidation, "translate", "prepare",
			"Job has no target language", nil)
	}
	job.SetProgress("Translating", "Translation started", 0)
	return nil
}

// Execute translates the job's segments and, when enabled, runs the review
// pass over the result.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	segments, err := stage.ParseSegments(job.SegmentsJSON)
	if err != nil {
		return err
	}

	target := language.DisplayName(job.TargetLanguage)
	reporter := s.progressReporter(ctx, job, "Translating")

	translated, err := s.translator.Run(ctx, segments, target, reporter)
	if err != nil {
		return err
	}

	if s.review {
		job.SetProgress("Reviewing translation", "Review started", 0)
		reviewed, err := s.translator.Review(ctx, translated, s.progressReporter(ctx, job, "Reviewing translation"))
		if err != nil {
			return err
		}
		translated = reviewed
	}

	projectWordTimings(translated, language.ToISO2(job.TargetLanguage))

	encoded, err := stage.EncodeSegments(translated)
	if err != nil {
		return err
	}
	job.SegmentsJSON = encoded
	job.SetProgress("Translating", "Translation finished", 100)
	return nil
}

// projectWordTimings anchors each translation to the word beats of the
// original speech so downstream rendering can reveal it at the same rhythm.
func projectWordTimings(segments []segment.Segment, langHint string) {
	for i := range segments {
		seg := &segments[i]
		if len(seg.Words) == 0 || strings.TrimSpace(seg.Translation) == "" {
			continue
		}
		seg.TranslatedWords = beats.Project(seg.Words, seg.Translation, seg.End, langHint)
	}
}

func (s *Stage) progressReporter(ctx context.Context, job *queue.Job, stageLabel string) progress.Reporter {
	return progress.Func(func(update progress.Update) {
		message := job.ProgressMessage
		if update.Total > 0 {
			message = fmt.Sprintf("%d/%d segments", update.Current, update.Total)
		}
		label := textutil.Ternary(update.Stage != "", update.Stage, stageLabel)
		job.SetProgress(label, message, update.Percent)
		if err := s.store.UpdateProgress(ctx, job); err != nil {
			s.logger.Debug("progress update dropped", logging.Error(err))
		}
	})
}

// HealthCheck reports whether the translator can reach a chat client.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.translator == nil || s.translator.client == nil {
		return stage.Unhealthy("translate", "chat client not configured")
	}
	return stage.Healthy("translate")
}
