package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"subforge/internal/config"
	"subforge/internal/media/ffprobe"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <media-file>",
		Short: "Inspect a media container with ffprobe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}

			result, err := ffprobe.Inspect(cmd.Context(), cfg.Render.FFprobeBinary, path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Container: %s\n", result.Format.FormatName)
			fmt.Fprintf(out, "Duration:  %.2fs\n", result.DurationSeconds())
			if fps := result.FrameRate(); fps > 0 {
				fmt.Fprintf(out, "Framerate: %.3f fps\n", fps)
			}

			if len(result.Streams) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(result.Streams))
			for _, stream := range result.Streams {
				rows = append(rows, []string{
					strconv.Itoa(stream.Index),
					stream.CodecType,
					stream.CodecName,
					streamDetail(stream),
				})
			}
			rendered := renderTable(
				[]string{"#", "Type", "Codec", "Detail"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(out, rendered)
			return nil
		},
	}
}

func streamDetail(stream ffprobe.Stream) string {
	switch strings.ToLower(stream.CodecType) {
	case "video":
		detail := fmt.Sprintf("%dx%d", stream.Width, stream.Height)
		if stream.AvgFrameRate != "" && stream.AvgFrameRate != "0/0" {
			detail += " @ " + stream.AvgFrameRate
		}
		return detail
	case "audio":
		detail := fmt.Sprintf("%d ch", stream.Channels)
		if stream.SampleRate != "" {
			detail += ", " + stream.SampleRate + " Hz"
		}
		return detail
	default:
		return ""
	}
}
