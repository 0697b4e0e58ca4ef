package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/isnex/invoice-loader/internal/application/port"
	"github.com/isnex/invoice-loader/internal/container"
)

var (
	summaryTenant string
	summaryDay    string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Write the daily workbook and send the digest",
	Example: `  invoicectl summary
  invoicectl summary --day 2025-09-16 --tenant "MÁGERSTAV, spol. s r.o."`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		day := time.Now().UTC()
		if summaryDay != "" {
			parsed, err := time.Parse("2006-01-02", summaryDay)
			if err != nil {
				return fmt.Errorf("--day must be YYYY-MM-DD: %w", err)
			}
			day = parsed
		}

		return withContainer(cmd.Context(), func(c *container.Container) error {
			summary := c.Services().Summary
			var (
				summaries []*port.DailySummary
				err       error
			)
			if summaryTenant != "" {
				var s *port.DailySummary
				s, err = summary.Send(cmd.Context(), summaryTenant, day)
				if s != nil {
					summaries = append(summaries, s)
				}
			} else {
				summaries, err = summary.SendAll(cmd.Context(), day)
			}

			for _, s := range summaries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tprocessed=%d partial=%d total=%s\t%s\n",
					s.Day.Format("2006-01-02"), s.Tenant, s.Processed, s.Partial, s.TotalAmount, s.WorkbookPath)
			}
			return err
		})
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summaryTenant, "tenant", "", "single tenant (default all tenants)")
	summaryCmd.Flags().StringVar(&summaryDay, "day", "", "UTC day as YYYY-MM-DD (default today)")
}
