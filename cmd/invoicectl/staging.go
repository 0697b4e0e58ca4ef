package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/isnex/invoice-loader/internal/config"
	"github.com/isnex/invoice-loader/internal/container"
)

var stagingCmd = &cobra.Command{
	Use:   "staging",
	Short: "Maintain the staging database",
}

var stagingInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Check connectivity and create the staging tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		store := container.ProvideStaging(&cfg.Staging, logger)
		if store == nil {
			return fmt.Errorf("staging is disabled in configuration")
		}
		defer store.Close()

		if err := store.TestConnection(cmd.Context()); err != nil {
			return err
		}
		if err := store.EnsureSchema(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "staging schema ready on %s:%d/%s\n", cfg.Staging.Host, cfg.Staging.Port, cfg.Staging.Database)
		return nil
	},
}

func init() {
	stagingCmd.AddCommand(stagingInitCmd)
}
