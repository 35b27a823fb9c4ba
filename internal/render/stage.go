package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"subforge/internal/config"
	"subforge/internal/fileutil"
	"subforge/internal/language"
	"subforge/internal/logging"
	"subforge/internal/media/ffmpeg"
	"subforge/internal/media/ffprobe"
	"subforge/internal/ops"
	"subforge/internal/progress"
	"subforge/internal/queue"
	"subforge/internal/segment"
	"subforge/internal/services"
	"subforge/internal/stage"
	"subforge/internal/textutil"
)

// subtitleExtensions are source files that carry no base video; rendering
// them produces a black-canvas burn-in.
var subtitleExtensions = map[string]struct{}{
	".srt": {}, ".vtt": {}, ".ass": {}, ".txt": {}, ".json": {},
}

// Stage adapts the renderer to the queue pipeline contract.
type Stage struct {
	cfg      *config.Config
	store    *queue.Store
	registry *ops.Registry
	opener   PageOpener
	logger   *slog.Logger
}

// NewStage constructs the render stage. The registry may be nil for one-shot
// runs; the opener may be nil, in which case a browser opener is built from
// the configured binary per operation.
func NewStage(cfg *config.Config, store *queue.Store, registry *ops.Registry, opener PageOpener, logger *slog.Logger) *Stage {
	return &Stage{
		cfg:      cfg,
		store:    store,
		registry: registry,
		opener:   opener,
		logger:   logging.NewComponentLogger(logger, "render-stage"),
	}
}

// Prepare validates the payload and promotes the job's registry entry to a
// render operation.
func (s *Stage) Prepare(_ context.Context, job *queue.Job) error {
	segments, err := stage.ParseSegments(job.SegmentsJSON)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return services.Wrap(services.ErrValidation, "render", "prepare",
			"Job has no segments to render", nil)
	}
	if s.registry != nil {
		if err := s.registry.RegisterRender(job.OperationID, nil); err != nil {
			s.logger.Debug("render registration skipped", logging.Error(err))
		}
	}
	job.SetProgress("Rendering", "Render started", 0)
	return nil
}

// Execute drives the capture, overlay-assembly, and merge states and records
// the rendered file on the job.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	segments, err := stage.ParseSegments(job.SegmentsJSON)
	if err != nil {
		return err
	}

	mode := segment.ParseDisplayMode(job.DisplayMode)
	events := segment.EventsFromSegments(segments, mode)
	if len(events) == 0 {
		return services.Wrap(services.ErrValidation, "render", "execute",
			"No visible subtitle events to render", nil)
	}

	renderJob, err := s.buildJob(ctx, job, segments, events)
	if err != nil {
		return err
	}

	runner := ffmpeg.NewRunner(s.logger,
		ffmpeg.WithBinary(s.cfg.Render.FFmpegBinary),
		ffmpeg.WithProcessHook(s.processHook(job.OperationID)),
	)
	renderer := NewRenderer(runner, s.logger)

	opener := s.opener
	if opener == nil {
		opener = NewBrowserOpener(s.cfg.Render.BrowserBinary, s.logger,
			WithBrowserProcessHook(ProcessHook(s.processHook(job.OperationID))))
	}
	page, err := opener.Open(ctx, renderJob.Width, renderJob.Height)
	if err != nil {
		return err
	}
	if s.registry != nil {
		s.registry.AttachPage(job.OperationID, page.Close)
	}
	defer page.Close()

	reporter := progress.Func(func(update progress.Update) {
		job.SetProgress("Rendering", update.Stage, update.Percent)
		if err := s.store.UpdateProgress(ctx, job); err != nil {
			s.logger.Debug("progress update dropped", logging.Error(err))
		}
	})

	if err := renderer.Run(ctx, renderJob, page, reporter); err != nil {
		return err
	}

	// The merge lands in the work directory; only a confirmed result moves
	// into the output tree.
	finalPath := s.renderedPath(job)
	if err := fileutil.MoveFile(renderJob.OutputPath, finalPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "render", "publish",
			"Could not move rendered file into the output directory", err)
	}

	job.RenderedFile = finalPath
	job.SetProgress("Rendering", "Render finished", 100)
	return nil
}

// buildJob probes the source to decide between overlaying a base video and
// burning onto a black canvas.
func (s *Stage) buildJob(ctx context.Context, job *queue.Job, segments []segment.Segment, events []segment.Event) (Job, error) {
	renderJob := Job{
		OperationID: job.OperationID,
		Events:      events,
		FrameRate:   s.cfg.Render.FrameRate,
		Width:       s.cfg.Render.ViewportWidth,
		Height:      s.cfg.Render.ViewportHeight,
		WorkDir:     s.cfg.Paths.WorkDir,
		OutputPath:  filepath.Join(s.cfg.Paths.WorkDir, textutil.SanitizeToken(job.OperationID)+".render.mp4"),
	}

	renderJob.DurationSeconds = segments[len(segments)-1].End

	ext := strings.ToLower(filepath.Ext(job.SourcePath))
	if _, subtitleOnly := subtitleExtensions[ext]; subtitleOnly {
		return renderJob, nil
	}

	probe, err := ffprobe.Inspect(ctx, s.cfg.Render.FFprobeBinary, job.SourcePath)
	if err != nil {
		return Job{}, err
	}
	if probe.HasVideo() {
		renderJob.BaseVideo = job.SourcePath
		renderJob.KeepAudio = s.cfg.Render.KeepAudio && probe.HasAudio()
		if d := probe.DurationSeconds(); d > 0 {
			renderJob.DurationSeconds = d
		}
		if fps := probe.FrameRate(); fps > 0 {
			renderJob.FrameRate = fps
		}
	}
	return renderJob, nil
}

func (s *Stage) renderedPath(job *queue.Job) string {
	base := filepath.Base(strings.TrimSpace(job.SourcePath))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = textutil.SanitizeFileName(base)
	if base == "" {
		base = textutil.SanitizeToken(job.OperationID)
	}
	lang := language.ToISO2(job.TargetLanguage)
	if lang == "" {
		lang = "und"
	}
	return filepath.Join(s.cfg.Paths.OutputDir, fmt.Sprintf("%s.%s.mp4", base, lang))
}

func (s *Stage) processHook(operationID string) ffmpeg.ProcessHook {
	return func(process *os.Process) {
		if s.registry != nil {
			s.registry.AttachProcess(operationID, process)
		}
	}
}

// HealthCheck verifies the external binaries the render stage shells out to.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	for _, binary := range []string{s.cfg.Render.FFmpegBinary, s.cfg.Render.FFprobeBinary, s.cfg.Render.BrowserBinary} {
		if strings.TrimSpace(binary) == "" {
			continue
		}
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy("render", fmt.Sprintf("%s not found in PATH", binary))
		}
	}
	return stage.Healthy("render")
}
