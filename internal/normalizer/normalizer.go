package normalizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"subforge/internal/config"
	"subforge/internal/language"
	"subforge/internal/logging"
	"subforge/internal/queue"
	"subforge/internal/segment"
	"subforge/internal/services"
	"subforge/internal/stage"
	"subforge/internal/textutil"
)

// Stage normalizes segment timing and serializes the finished subtitle track
// into the output directory.
type Stage struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
}

// NewStage constructs the normalize stage.
func NewStage(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Stage {
	return &Stage{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "normalize-stage"),
	}
}

// Prepare validates the payload and the output directory.
func (s *Stage) Prepare(_ context.Context, job *queue.Job) error {
	if _, err := stage.ParseSegments(job.SegmentsJSON); err != nil {
		return err
	}
	if strings.TrimSpace(s.cfg.Paths.OutputDir) == "" {
		return services.Wrap(services.ErrConfiguration, "normalize", "prepare",
			"Output directory not configured", nil)
	}
	job.SetProgress("Normalizing", "Normalization started", 0)
	return nil
}

// Execute rewrites segment timing and writes the subtitle file.
func (s *Stage) Execute(_ context.Context, job *queue.Job) error {
	segments, err := stage.ParseSegments(job.SegmentsJSON)
	if err != nil {
		return err
	}

	normalized := segment.Normalize(segments)

	encoded, err := stage.EncodeSegments(normalized)
	if err != nil {
		return err
	}
	job.SegmentsJSON = encoded

	mode := segment.ParseDisplayMode(job.DisplayMode)
	data := segment.BuildSRT(normalized, mode)

	dest := s.subtitlePath(job)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "normalize", "write subtitle",
			"Could not create output directory", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "normalize", "write subtitle",
			"Could not write subtitle file", err)
	}

	job.SubtitleFile = dest
	job.SetProgress("Normalizing", fmt.Sprintf("Wrote %d cues", len(normalized)), 100)
	s.logger.Info("subtitle track written",
		logging.String("path", dest),
		logging.Int("cues", len(normalized)),
	)
	return nil
}

// subtitlePath derives the output file name from the source media name and
// the target language, e.g. episode01.es.srt.
func (s *Stage) subtitlePath(job *queue.Job) string {
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
	return filepath.Join(s.cfg.Paths.OutputDir, fmt.Sprintf("%s.%s.srt", base, lang))
}

// HealthCheck reports whether the output directory is writable.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	dir := strings.TrimSpace(s.cfg.Paths.OutputDir)
	if dir == "" {
		return stage.Unhealthy("normalize", "output directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stage.Unhealthy("normalize", fmt.Sprintf("output directory unavailable: %v", err))
	}
	return stage.Healthy("normalize")
}
