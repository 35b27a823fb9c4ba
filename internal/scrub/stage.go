package scrub

import (
	"context"
	"fmt"
	"log/slog"

	"subforge/internal/logging"
	"subforge/internal/progress"
	"subforge/internal/queue"
	"subforge/internal/stage"
)

// Stage adapts the scrubber to the queue pipeline contract.
type Stage struct {
	store    *queue.Store
	scrubber *Scrubber
	logger   *slog.Logger
}

// NewStage wires a scrubber into the workflow for the given store.
func NewStage(store *queue.Store, client ChatClient, logger *slog.Logger) *Stage {
	return &Stage{
		store:    store,
		scrubber: NewScrubber(client, logger),
		logger:   logging.NewComponentLogger(logger, "scrub-stage"),
	}
}

// Prepare validates the job's segment payload before spending provider calls.
func (s *Stage) Prepare(_ context.Context, job *queue.Job) error {
	_, err := stage.ParseSegments(job.SegmentsJSON)
	if err != nil {
		return err
	}
	job.SetProgress("Scrubbing transcript", "Scrubbing started", 0)
	return nil
}

// Execute runs the scrubber over the job's segments and stores the cleaned
// payload back on the job.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	segments, err := stage.ParseSegments(job.SegmentsJSON)
	if err != nil {
		return err
	}

	videoLength := 0.0
	if n := len(segments); n > 0 {
		videoLength = segments[n-1].End
	}

	reporter := progress.Func(func(update progress.Update) {
		message := job.ProgressMessage
		if update.Total > 0 {
			message = fmt.Sprintf("%d/%d segments", update.Current, update.Total)
		}
		job.SetProgress(update.Stage, message, update.Percent)
		if err := s.store.UpdateProgress(ctx, job); err != nil {
			s.logger.Debug("progress update dropped", logging.Error(err))
		}
	})

	cleaned, err := s.scrubber.Run(ctx, segments, videoLength, reporter)
	if err != nil {
		return err
	}

	encoded, err := stage.EncodeSegments(cleaned)
	if err != nil {
		return err
	}
	job.SegmentsJSON = encoded
	job.SetProgress("Scrubbing transcript", "Scrubbing finished", 100)
	return nil
}

// HealthCheck reports whether the scrubber can reach a chat client.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.scrubber == nil || s.scrubber.client == nil {
		return stage.Unhealthy("scrub", "chat client not configured")
	}
	return stage.Healthy("scrub")
}
