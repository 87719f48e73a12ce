package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/float-tracker/internal/config"
	"github.com/donaldgifford/float-tracker/internal/history"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply history database migrations",
		Long:  "migrate applies pending PostgreSQL migrations. serve also runs them on startup.",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if cfg.History.Backend != config.BackendPostgres {
				return fmt.Errorf("history.backend is %q; migrations only apply to postgres", cfg.History.Backend)
			}

			log, logCloser := newLogger(cfg)
			defer logCloser.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			pg, err := history.NewPostgresBackend(ctx, cfg.Database.DSN())
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer pg.Close()

			log.Info("running migrations", "host", cfg.Database.Host)
			applied, err := pg.Migrate(ctx)
			if err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}

			log.Info("migrations complete", "applied", len(applied), "versions", applied)
			return nil
		},
	}
}
