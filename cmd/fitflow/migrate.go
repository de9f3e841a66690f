package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fitflow/internal/adapter/postgres"
	"fitflow/internal/config"
)

func newMigrateCmd(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the postgres schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Store != config.StorePostgres {
				return errors.New("migrate needs store=postgres")
			}
			logger := cfg.Logger(os.Stderr)

			db, err := postgres.Open(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("db open: %w", err)
			}
			defer func() { _ = db.Close() }()

			if err := db.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("db migrate: %w", err)
			}
			logger.Info("schema up to date")
			return nil
		},
	}
}
