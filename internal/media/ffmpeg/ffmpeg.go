package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"subforge/internal/logging"
	"subforge/internal/services"
)

// ProcessHook observes every ffmpeg process immediately after it starts,
// before the runner waits on it. The operation registry uses this to attach
// the process to its kill list so a cancellation can never race the spawn.
type ProcessHook func(*os.Process)

// Runner invokes the ffmpeg binary for the pipeline's encode and mux steps.
type Runner struct {
	binary string
	logger *slog.Logger
	hook   ProcessHook
}

// Option configures a Runner.
type Option func(*Runner)

// WithBinary overrides the default ffmpeg binary name.
func WithBinary(binary string) Option {
	return func(r *Runner) {
		if strings.TrimSpace(binary) != "" {
			r.binary = binary
		}
	}
}

// WithProcessHook registers the observer called for each started process.
func WithProcessHook(hook ProcessHook) Option {
	return func(r *Runner) {
		r.hook = hook
	}
}

// NewRunner constructs a Runner using defaults.
func NewRunner(logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		binary: "ffmpeg",
		logger: logging.NewComponentLogger(logger, "ffmpeg"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ExtractAudio extracts one audio stream into a mono 16kHz WAV file suitable
// for transcription.
func (r *Runner) ExtractAudio(ctx context.Context, source string, audioIndex int, dest string) error {
	if audioIndex < 0 {
		return services.Wrap(services.ErrValidation, "ffmpeg", "extract audio", fmt.Sprintf("invalid audio track index %d", audioIndex), nil)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", fmt.Sprintf("0:%d", audioIndex),
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	cmd := exec.CommandContext(ctx, r.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "extract audio", strings.TrimSpace(string(output)), err)
	}
	return nil
}

// EncodeOverlay turns an FFConcat PNG list into a transparent overlay clip.
// The clip keeps its alpha channel (ProRes 4444, yuva444p10le) so it can be
// composited over arbitrary base video later. Progress covers the encode's
// own 0-100 range.
func (r *Runner) EncodeOverlay(ctx context.Context, concatPath string, frameRate float64, dest string, totalSeconds float64, onProgress func(percent float64)) error {
	if frameRate <= 0 {
		frameRate = 30
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", concatPath,
		"-vsync", "vfr",
		"-r", formatFrameRate(frameRate),
		"-c:v", "prores_ks",
		"-profile:v", "4444",
		"-pix_fmt", "yuva444p10le",
		"-progress", "pipe:1",
		"-nostats",
		dest,
	}
	return r.runWithProgress(ctx, "encode overlay", args, totalSeconds, onProgress)
}

// MergeOptions selects the base the overlay is composited onto and what
// happens to the audio track.
type MergeOptions struct {
	// BaseVideo is the source file the overlay is drawn on. Empty means the
	// overlay is rendered onto a black canvas instead.
	BaseVideo string
	// Width and Height size the black canvas when BaseVideo is empty.
	Width  int
	Height int
	// KeepAudio copies the base video's audio track into the output.
	KeepAudio bool
	// DurationSeconds bounds the output and scales progress.
	DurationSeconds float64
}

// Merge composites the transparent overlay clip onto the base video, or onto
// a silent black canvas when no base is configured. Progress covers the
// merge's own 0-100 range.
func (r *Runner) Merge(ctx context.Context, overlayPath string, opts MergeOptions, dest string, onProgress func(percent float64)) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
	}
	if opts.BaseVideo != "" {
		args = append(args, "-i", opts.BaseVideo)
	} else {
		args = append(args, "-f", "lavfi", "-i", canvasSource(opts))
	}
	args = append(args,
		"-i", overlayPath,
		"-filter_complex", "[0:v][1:v]overlay=0:0:format=auto[v]",
		"-map", "[v]",
	)
	if opts.BaseVideo != "" && opts.KeepAudio {
		args = append(args, "-map", "0:a?", "-c:a", "copy")
	} else {
		args = append(args, "-an")
	}
	args = append(args,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
	)
	if opts.DurationSeconds > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", opts.DurationSeconds))
	}
	args = append(args,
		"-progress", "pipe:1",
		"-nostats",
		dest,
	)
	return r.runWithProgress(ctx, "merge", args, opts.DurationSeconds, onProgress)
}

// runWithProgress starts ffmpeg, streams its machine-readable progress lines
// from stdout, and reports completion percentages derived from out_time_ms
// against the expected total duration. The command fails with the exit error
// and captured stderr when ffmpeg exits non-zero.
func (r *Runner) runWithProgress(ctx context.Context, operation string, args []string, totalSeconds float64, onProgress func(percent float64)) error {
	cmd := exec.CommandContext(ctx, r.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", operation, "stdout pipe", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", operation, "start ffmpeg", err)
	}
	if r.hook != nil {
		r.hook(cmd.Process)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		seconds, ok := parseProgressLine(scanner.Text())
		if !ok || onProgress == nil || totalSeconds <= 0 {
			continue
		}
		percent := seconds / totalSeconds * 100
		if percent > 100 {
			percent = 100
		}
		onProgress(percent)
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		detail := strings.TrimSpace(stderr.String())
		if exitErr, ok := err.(*exec.ExitError); ok {
			detail = fmt.Sprintf("exit code %d: %s", exitErr.ExitCode(), detail)
		}
		return services.Wrap(services.ErrExternalTool, "ffmpeg", operation, detail, err)
	}
	return nil
}

// parseProgressLine extracts elapsed seconds from one ffmpeg progress line.
// Despite its name, out_time_ms carries microseconds.
func parseProgressLine(line string) (float64, bool) {
	value, found := strings.CutPrefix(strings.TrimSpace(line), "out_time_ms=")
	if !found {
		return 0, false
	}
	micros, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || micros < 0 {
		return 0, false
	}
	return float64(micros) / 1e6, true
}

// canvasSource builds the lavfi input used when no base video is configured.
func canvasSource(opts MergeOptions) string {
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 1920
	}
	if height <= 0 {
		height = 1080
	}
	return fmt.Sprintf("color=c=black:s=%dx%d:d=%.3f", width, height, opts.DurationSeconds)
}

func formatFrameRate(fps float64) string {
	if fps == float64(int64(fps)) {
		return strconv.FormatInt(int64(fps), 10)
	}
	return strconv.FormatFloat(fps, 'f', 3, 64)
}
