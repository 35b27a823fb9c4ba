package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"subforge/internal/language"
	"subforge/internal/ops"
	"subforge/internal/queue"
	"subforge/internal/render"
	"subforge/internal/stage"
	"subforge/internal/stageexec"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var subtitleFlag string
	var languageFlag string
	var displayModeFlag string

	cmd := &cobra.Command{
		Use:   "render <source>",
		Short: "Burn a subtitle track into a video file",
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

			source, subtitlePath, err := resolveSources(args[0], subtitleFlag)
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

			registry := ops.NewRegistry(logger)
			err = stageexec.Run(cmd.Context(), stageexec.Options{
				Logger:     logger,
				Store:      store,
				Handler:    render.NewStage(cfg, store, registry, nil, logger),
				StageName:  "render",
				Processing: queue.StatusRendering,
				Done:       queue.StatusCompleted,
				Job:        job,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", job.RenderedFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&subtitleFlag, "subtitle", "", "Subtitle file to burn when the source is a video")
	cmd.Flags().StringVarP(&languageFlag, "language", "l", "", "Language tag used for the output name")
	cmd.Flags().StringVar(&displayModeFlag, "display-mode", "", "Cue display mode: original, translation, or dual")
	return cmd
}
