package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fitflow/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var configFile string

	cmd := &cobra.Command{
		Use:          "fitflow",
		Short:        "Personal fitness tracker with undoable logging",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a config file (yaml, json or toml)")
	cmd.PersistentFlags().String("store", "", "storage backend: memory or postgres")
	cmd.PersistentFlags().String("database-url", "", "postgres connection string")
	cmd.PersistentFlags().String("log-format", "", "json or text")
	cmd.PersistentFlags().String("log-level", "", "debug, info, warn or error")
	for _, name := range []string{"store", "database-url", "log-format", "log-level"} {
		_ = v.BindPFlag(configKey(name), cmd.PersistentFlags().Lookup(name))
	}

	load := func() (config.Config, error) {
		cfg, err := config.Load(v, configFile)
		if err != nil {
			return cfg, err
		}
		return cfg, cfg.Validate()
	}

	cmd.AddCommand(newServeCmd(v, load))
	cmd.AddCommand(newMigrateCmd(load))
	cmd.AddCommand(newReconcileCmd(load))
	return cmd
}

// configKey maps a dashed flag name to its config key.
func configKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}
