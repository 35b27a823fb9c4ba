package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"subforge/internal/logging"
	"subforge/internal/normalizer"
	"subforge/internal/ops"
	"subforge/internal/render"
	"subforge/internal/scrub"
	"subforge/internal/translate"
	"subforge/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process queued jobs until interrupted",
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
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			registry := ops.NewRegistry(logger)
			manager := workflow.NewManager(cfg, store, logger, registry)

			set := workflow.StageSet{
				Translator: translate.NewStage(store, client, logger, cfg.Translate.ReviewEnabled),
				Normalizer: normalizer.NewStage(cfg, store, logger),
				Renderer:   render.NewStage(cfg, store, registry, nil, logger),
			}
			if cfg.Scrub.Enabled {
				set.Scrubber = scrub.NewStage(store, client, logger)
			}
			manager.ConfigureStages(set)

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := manager.Start(runCtx); err != nil {
				return err
			}
			logger.Info("pipeline running", logging.String("queue_db", store.Path()))
			fmt.Fprintln(cmd.OutOrStdout(), "Processing queue; press Ctrl-C to stop.")

			<-runCtx.Done()
			manager.Stop()
			return nil
		},
	}
}
