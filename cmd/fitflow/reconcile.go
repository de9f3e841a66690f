package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fitflow/internal/app"
	"fitflow/internal/clock"
	"fitflow/internal/config"
)

func newReconcileCmd(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Retry deletes that failed to reach the database once, then exit",
		Long: "Reads the outbox of deletes that failed after their undo window and " +
			"retries each of them. Run it while the server is stopped; the outbox " +
			"directory can only be opened by one process.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			// An empty memory store reports every entry as missing, which
			// would count as success and drain the outbox.
			if cfg.Store != config.StorePostgres {
				return errors.New("reconcile needs store=postgres")
			}
			if cfg.OutboxDir == "" {
				return errors.New("reconcile needs a persistent outbox_dir")
			}
			logger := cfg.Logger(os.Stderr)

			b := &backend{}
			defer func() { _ = b.Close() }()
			if err := openStore(cmd.Context(), cfg, b); err != nil {
				return err
			}
			if err := openOutbox(cfg, logger, b); err != nil {
				return err
			}

			r := app.NewReconciler(b.outbox, removers(b.repos), cfg.ReconcileRate, clock.New(), cfg.RemoteTimeout, logger)
			res, err := r.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "attempted %d, succeeded %d, failed %d, skipped %d\n",
				res.Attempted, res.Succeeded, res.Failed, res.Skipped)
			if res.Failed > 0 {
				return fmt.Errorf("%d deletes still failing", res.Failed)
			}
			return nil
		},
	}
}
