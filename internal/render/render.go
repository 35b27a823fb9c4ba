package render

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"subforge/internal/logging"
	"subforge/internal/media/ffmpeg"
	"subforge/internal/progress"
	"subforge/internal/segment"
	"subforge/internal/services"
)

// State names one phase of a render operation.
type State string

const (
	StateIdle              State = "Idle"
	StateCapturingStates   State = "CapturingStates"
	StateAssemblingOverlay State = "AssemblingOverlay"
	StateMerging           State = "Merging"
	StateComplete          State = "Complete"
	StateCancelled         State = "Cancelled"
)

// Progress bands for the three working states. 100 is reserved for a
// confirmed zero exit from the final merge.
const (
	captureBandStart  = 2.0
	captureBandEnd    = 45.0
	assembleBandEnd   = 70.0
	mergeBandEnd      = 99.0
	heartbeatInterval = 5 * time.Second
)

// Page is the headless browser surface the renderer draws subtitle states on.
type Page interface {
	// SetText updates the page's subtitle node to the given text. An empty
	// string clears the display.
	SetText(ctx context.Context, text string) error
	// Screenshot captures the viewport to a transparent-background PNG.
	Screenshot(ctx context.Context, dest string) error
	// Close tears the page down. Safe to call more than once.
	Close() error
}

// Encoder is the ffmpeg surface the renderer needs.
type Encoder interface {
	EncodeOverlay(ctx context.Context, concatPath string, frameRate float64, dest string, totalSeconds float64, onProgress func(percent float64)) error
	Merge(ctx context.Context, overlayPath string, opts ffmpeg.MergeOptions, dest string, onProgress func(percent float64)) error
}

// Job describes one render operation.
type Job struct {
	OperationID     string
	Events          []segment.Event
	DurationSeconds float64
	FrameRate       float64
	BaseVideo       string
	KeepAudio       bool
	Width           int
	Height          int
	OutputPath      string
	// WorkDir is the shared temp root; the job gets an operation-scoped
	// subdirectory beneath it.
	WorkDir string
}

// Renderer drives the capture, assemble, and merge states of a render
// operation.
type Renderer struct {
	encoder   Encoder
	logger    *slog.Logger
	heartbeat time.Duration
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithHeartbeat overrides the coarse-progress heartbeat interval used during
// long captures.
func WithHeartbeat(interval time.Duration) Option {
	return func(r *Renderer) {
		if interval > 0 {
			r.heartbeat = interval
		}
	}
}

// NewRenderer constructs a renderer around the given encoder.
func NewRenderer(encoder Encoder, logger *slog.Logger, opts ...Option) *Renderer {
	r := &Renderer{
		encoder:   encoder,
		logger:    logging.NewComponentLogger(logger, "render"),
		heartbeat: heartbeatInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// serialReporter hands updates to the wrapped reporter one at a time, so
// reporter implementations never observe concurrent calls even while the
// capture heartbeat runs.
type serialReporter struct {
	mu    sync.Mutex
	inner progress.Reporter
}

func (s *serialReporter) Report(update progress.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Report(update)
}

// Run executes the full render state machine for one job. Temp artifacts are
// removed on every exit path; on cancellation the job's captured PNGs are
// deleted and a final update with the Cancelled stage is emitted. 100% is
// reported only after the merge process confirms a zero exit.
func (r *Renderer) Run(ctx context.Context, job Job, page Page, reporter progress.Reporter) (err error) {
	if reporter == nil {
		reporter = progress.Discard
	}
	// The capture heartbeat reports from its own goroutine; every state
	// gets a wrapper that serializes delivery to the caller's reporter.
	reporter = &serialReporter{inner: reporter}
	if err := validateJob(job); err != nil {
		return err
	}

	workDir := filepath.Join(job.WorkDir, "render-"+job.OperationID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(services.ErrExternalTool, "render", "workdir", "create operation workdir", err)
	}
	defer func() {
		if removeErr := os.RemoveAll(workDir); removeErr != nil {
			r.logger.Warn("failed to remove render workdir",
				logging.String(logging.FieldOperationID, job.OperationID),
				logging.Error(removeErr),
			)
		}
		if ctx.Err() != nil {
			err = ctx.Err()
			reporter.Report(progress.Update{
				Percent:     100,
				Stage:       string(StateCancelled),
				OperationID: job.OperationID,
			})
		}
	}()

	frames, err := r.captureStates(ctx, job, page, workDir, reporter)
	if err != nil {
		return err
	}

	overlayPath, err := r.assembleOverlay(ctx, job, frames, workDir, reporter)
	if err != nil {
		return err
	}

	if err := r.merge(ctx, job, overlayPath, reporter); err != nil {
		return err
	}

	reporter.Report(progress.Update{
		Percent:     100,
		Stage:       string(StateComplete),
		OperationID: job.OperationID,
	})
	return nil
}

// captureStates rasterizes one PNG per subtitle event and records each
// frame's display duration rounded to the frame grid.
func (r *Renderer) captureStates(ctx context.Context, job Job, page Page, workDir string, reporter progress.Reporter) ([]ffmpeg.Frame, error) {
	stage := string(StateCapturingStates)
	total := len(job.Events)

	var lastPercent atomic.Uint64
	lastPercent.Store(math.Float64bits(captureBandStart))
	heartbeatDone := make(chan struct{})
	defer close(heartbeatDone)
	go func() {
		ticker := time.NewTicker(r.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-heartbeatDone:
				return
			case <-ticker.C:
				reporter.Report(progress.Update{
					Percent:     math.Float64frombits(lastPercent.Load()),
					Stage:       stage,
					OperationID: job.OperationID,
				})
			}
		}
	}()

	frames := make([]ffmpeg.Frame, 0, total)
	for i, event := range job.Events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := page.SetText(ctx, event.Text); err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "render", "capture", "update subtitle state", err)
		}
		framePath := filepath.Join(workDir, fmt.Sprintf("state-%04d.png", i))
		if err := page.Screenshot(ctx, framePath); err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "render", "capture", "capture subtitle state", err)
		}
		frames = append(frames, ffmpeg.Frame{
			Path:            framePath,
			DurationSeconds: r.frameDuration(job, i),
		})
		percent := progress.Scale(float64(i+1)/float64(total)*100, captureBandStart, captureBandEnd)
		lastPercent.Store(math.Float64bits(percent))
		reporter.Report(progress.Update{
			Percent:     percent,
			Stage:       stage,
			Current:     i + 1,
			Total:       total,
			OperationID: job.OperationID,
		})
	}
	return frames, nil
}

// frameDuration returns the display span of event i, from its timestamp to
// the next event's (or the job end), rounded to the nearest frame boundary.
// Spans that round to zero keep a single frame.
func (r *Renderer) frameDuration(job Job, i int) float64 {
	startSec := float64(job.Events[i].TimeMs) / 1000
	var endSec float64
	if i+1 < len(job.Events) {
		endSec = float64(job.Events[i+1].TimeMs) / 1000
	} else {
		endSec = job.DurationSeconds
	}
	span := endSec - startSec
	if span < 0 {
		span = 0
	}
	fps := job.FrameRate
	if fps <= 0 {
		fps = 30
	}
	rounded := math.Round(span*fps) / fps
	if rounded <= 0 {
		rounded = 1 / fps
	}
	return rounded
}

func (r *Renderer) assembleOverlay(ctx context.Context, job Job, frames []ffmpeg.Frame, workDir string, reporter progress.Reporter) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	stage := string(StateAssemblingOverlay)
	concatPath := filepath.Join(workDir, "frames.ffconcat")
	if err := ffmpeg.WriteConcatList(concatPath, frames); err != nil {
		return "", err
	}
	overlayPath := filepath.Join(workDir, "overlay.mov")
	err := r.encoder.EncodeOverlay(ctx, concatPath, job.FrameRate, overlayPath, job.DurationSeconds, func(percent float64) {
		reporter.Report(progress.Update{
			Percent:     progress.Scale(percent, captureBandEnd, assembleBandEnd),
			Stage:       stage,
			OperationID: job.OperationID,
		})
	})
	if err != nil {
		return "", err
	}
	return overlayPath, nil
}

func (r *Renderer) merge(ctx context.Context, job Job, overlayPath string, reporter progress.Reporter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stage := string(StateMerging)
	opts := ffmpeg.MergeOptions{
		BaseVideo:       job.BaseVideo,
		Width:           job.Width,
		Height:          job.Height,
		KeepAudio:       job.KeepAudio,
		DurationSeconds: job.DurationSeconds,
	}
	return r.encoder.Merge(ctx, overlayPath, opts, job.OutputPath, func(percent float64) {
		reporter.Report(progress.Update{
			Percent:     progress.Scale(percent, assembleBandEnd, mergeBandEnd),
			Stage:       stage,
			OperationID: job.OperationID,
		})
	})
}

func validateJob(job Job) error {
	switch {
	case job.OperationID == "":
		return services.Wrap(services.ErrValidation, "render", "job", "operation id required", nil)
	case len(job.Events) == 0:
		return services.Wrap(services.ErrValidation, "render", "job", "no subtitle events", nil)
	case job.DurationSeconds <= 0:
		return services.Wrap(services.ErrValidation, "render", "job", "duration required", nil)
	case job.OutputPath == "":
		return services.Wrap(services.ErrValidation, "render", "job", "output path required", nil)
	case job.WorkDir == "":
		return services.Wrap(services.ErrValidation, "render", "job", "work directory required", nil)
	}
	return nil
}
