package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"subforge/internal/config"
	"subforge/internal/language"
	"subforge/internal/normalizer"
	"subforge/internal/queue"
	"subforge/internal/scrub"
	"subforge/internal/stage"
	"subforge/internal/stageexec"
	"subforge/internal/translate"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var languageFlag string
	var displayModeFlag string
	var skipScrub bool

	cmd := &cobra.Command{
		Use:   "translate <subtitle-file>",
		Short: "Scrub, translate, and normalize one subtitle file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			client, err := ctx.chatClient()
			if err != nil {
				return err
			}

			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			if !isSubtitlePath(source) {
				return fmt.Errorf("translate expects a subtitle file, got %s", source)
			}
			segments, err := loadSubtitleSegments(source)
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

			job, err := store.NewJob(cmd.Context(), "", source, language.ToISO2(target), mode)
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

			if cfg.Scrub.Enabled && !skipScrub {
				err = stageexec.Run(cmd.Context(), stageexec.Options{
					Logger:     logger,
					Store:      store,
					Handler:    scrub.NewStage(store, client, logger),
					StageName:  "scrub",
					Processing: queue.StatusScrubbing,
					Done:       queue.StatusScrubbed,
					Job:        job,
				})
				if err != nil {
					return err
				}
			}

			err = stageexec.Run(cmd.Context(), stageexec.Options{
				Logger:     logger,
				Store:      store,
				Handler:    translate.NewStage(store, client, logger, cfg.Translate.ReviewEnabled),
				StageName:  "translate",
				Processing: queue.StatusTranslating,
				Done:       queue.StatusTranslated,
				Job:        job,
			})
			if err != nil {
				return err
			}

			err = stageexec.Run(cmd.Context(), stageexec.Options{
				Logger:     logger,
				Store:      store,
				Handler:    normalizer.NewStage(cfg, store, logger),
				StageName:  "normalize",
				Processing: queue.StatusNormalizing,
				Done:       queue.StatusCompleted,
				Job:        job,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", job.SubtitleFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&languageFlag, "language", "l", "", "Target language (defaults to configuration)")
	cmd.Flags().StringVar(&displayModeFlag, "display-mode", "", "Cue display mode: original, translation, or dual")
	cmd.Flags().BoolVar(&skipScrub, "skip-scrub", false, "Skip the hallucination scrub pass")
	return cmd
}
