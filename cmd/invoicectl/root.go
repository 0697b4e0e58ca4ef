package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/isnex/invoice-loader/internal/config"
	"github.com/isnex/invoice-loader/internal/container"
	"github.com/isnex/invoice-loader/pkg/utils"
)

var version = "2.0.0"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "invoicectl",
	Short: "Supplier invoice loader tooling",
	Long: `invoicectl runs the stages of the supplier invoice pipeline locally:
field extraction, ISDOC encoding, ingestion into the stores, daily summaries
and staging maintenance.

Commands that touch the stores read the same configuration as the server.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "config file, empty for environment only")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(extractCmd, encodeCmd, ingestCmd, summaryCmd, stagingCmd, notifyTestCmd)
}

func newLogger() (*zap.Logger, error) {
	return utils.NewCLILogger(verbose)
}

// withContainer starts the full component graph for the duration of fn
func withContainer(ctx context.Context, fn func(c *container.Container) error) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer c.Close()

	return fn(c)
}

func writeOutput(path string, content []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(content)
		return err
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
