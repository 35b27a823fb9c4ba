package ffmpeg

import (
	"fmt"
	"os"
	"strings"

	"subforge/internal/services"
)

// Frame is one overlay still with its display duration.
type Frame struct {
	Path            string
	DurationSeconds float64
}

// WriteConcatList writes an FFConcat-format list file referencing each frame
// with its duration. The last frame is repeated without a duration, which the
// concat demuxer requires for the final entry's duration to take effect.
func WriteConcatList(path string, frames []Frame) error {
	if len(frames) == 0 {
		return services.Wrap(services.ErrValidation, "ffmpeg", "concat list", "no frames", nil)
	}
	var b strings.Builder
	b.WriteString("ffconcat version 1.0\n")
	for _, frame := range frames {
		duration := frame.DurationSeconds
		if duration < 0 {
			duration = 0
		}
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(frame.Path))
		fmt.Fprintf(&b, "duration %.6f\n", duration)
	}
	fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(frames[len(frames)-1].Path))
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "concat list", "write list file", err)
	}
	return nil
}

func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}
