package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"subforge/internal/language"
	"subforge/internal/stage"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var subtitleFlag string
	var languageFlag string
	var displayModeFlag string

	cmd := &cobra.Command{
		Use:   "generate <source>",
		Short: "Queue a subtitle job for the processing pipeline",
		Long: "Queue a source for processing. The source is either a subtitle file or a\n" +
			"media file paired with --subtitle. Run 'subforge run' to process the queue.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			jobSource, subtitlePath, err := resolveSources(args[0], subtitleFlag)
			if err != nil {
				return err
			}
			segments, err := loadSubtitleSegments(subtitlePath)
			if err != nil {
				return err
			}

			target := strings.TrimSpace(languageFlag)
			if target == "" {
				target = cfg.Translate.TargetLanguage
			}
			if !language.Known(target) {
				return fmt.Errorf("unrecognized target language %q", target)
			}
			mode := strings.TrimSpace(displayModeFlag)
			if mode == "" {
				mode = cfg.Translate.DisplayMode
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := store.NewJob(cmd.Context(), "", jobSource, language.ToISO2(target), mode)
			if err != nil {
				return err
			}
			encoded, err := stage.EncodeSegments(segments)
			if err != nil {
				return err
			}
			job.SegmentsJSON = encoded
			if err := store.Update(cmd.Context(), job); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Queued job %d (operation %s)\n", job.ID, job.OperationID)
			fmt.Fprintf(out, "  source:   %s\n", job.SourcePath)
			fmt.Fprintf(out, "  cues:     %d\n", len(segments))
			fmt.Fprintf(out, "  language: %s\n", language.DisplayName(job.TargetLanguage))
			return nil
		},
	}

	cmd.Flags().StringVar(&subtitleFlag, "subtitle", "", "Subtitle file when the source is a media file")
	cmd.Flags().StringVarP(&languageFlag, "language", "l", "", "Target language (defaults to configuration)")
	cmd.Flags().StringVar(&displayModeFlag, "display-mode", "", "Cue display mode: original, translation, or dual")
	return cmd
}
