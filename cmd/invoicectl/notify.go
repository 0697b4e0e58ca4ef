package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/isnex/invoice-loader/internal/application/port"
	"github.com/isnex/invoice-loader/internal/config"
	"github.com/isnex/invoice-loader/internal/container"
)

var notifyTestCmd = &cobra.Command{
	Use:   "notify-test",
	Short: "Send a test alert through the configured notifier",
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
		if !cfg.Notification.Enabled {
			fmt.Fprintln(cmd.ErrOrStderr(), "notifications are disabled, the alert is only logged")
		}

		notifier := container.ProvideNotifier(&cfg.Notification, logger)
		err = notifier.NotifyFailure(cmd.Context(), port.FailureAlert{
			Tenant:     cfg.Tenant.Name,
			Filename:   "test.pdf",
			Kind:       "notification_test",
			Message:    "Test alert from invoicectl",
			OccurredAt: time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("send test alert: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "test alert sent")
		return nil
	},
}
