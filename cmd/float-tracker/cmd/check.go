package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/float-tracker/internal/config"
)

func checkCmd() *cobra.Command {
	var dryRun bool

	c := &cobra.Command{
		Use:   "check",
		Short: "Run a single poll cycle and print per-target outcomes",
		Long: "check fetches every target once, reconciles the results against history,\n" +
			"and prints what happened. With --dry-run no alerts are sent and history is\n" +
			"not written.",
		Example: `  float-tracker check
  float-tracker check --dry-run --output json`,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			log, logCloser := newLogger(cfg)
			defer logCloser.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			rt, err := buildRuntime(ctx, cfg, log, runtimeOptions{dryRun: dryRun})
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.refresher.Refresh(ctx); err != nil {
				log.Warn("exchange rate refresh failed, using default", "error", err)
			}

			outcomes := rt.engine.RunCycle(ctx)
			if jsonOutput() {
				return outputJSON(c.OutOrStdout(), outcomes)
			}
			return printOutcomes(c.OutOrStdout(), outcomes)
		},
	}

	c.Flags().BoolVar(&dryRun, "dry-run", false, "do not send alerts or write history")
	return c
}
