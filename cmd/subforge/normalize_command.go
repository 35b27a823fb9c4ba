package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"subforge/internal/config"
	"subforge/internal/segment"
)

func newNormalizeCommand(ctx *commandContext) *cobra.Command {
	var outputFlag string
	var displayModeFlag string

	cmd := &cobra.Command{
		Use:         "normalize <subtitle-file>",
		Short:       "Rewrap and retime one subtitle file without calling a language model",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			segments, err := loadSubtitleSegments(source)
			if err != nil {
				return err
			}

			normalized := segment.Normalize(segments)
			mode := segment.ParseDisplayMode(displayModeFlag)
			rendered := segment.BuildSRT(normalized, mode)

			dest := strings.TrimSpace(outputFlag)
			if dest == "" {
				ext := filepath.Ext(source)
				dest = strings.TrimSuffix(source, ext) + ".normalized.srt"
			} else if dest, err = config.ExpandPath(dest); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			if err := os.WriteFile(dest, rendered, 0o644); err != nil {
				return fmt.Errorf("write subtitle file: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d cues)\n", dest, len(normalized))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Destination path (defaults to <source>.normalized.srt)")
	cmd.Flags().StringVar(&displayModeFlag, "display-mode", "", "Cue display mode: original, translation, or dual")
	return cmd
}
