package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/isnex/invoice-loader/internal/application/service"
	"github.com/isnex/invoice-loader/internal/container"
	"github.com/isnex/invoice-loader/internal/domain/entity"
)

var (
	ingestTenant string
	ingestSender string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Run documents through the full pipeline",
	Long: `Process local documents exactly as the intake endpoint does: extract,
encode, commit to the primary store, write artifacts and stage them.
Each result is printed as one JSON line.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(c *container.Container) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			failed := 0
			for _, path := range args {
				content, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				res := c.Services().Ingest.Process(cmd.Context(), entity.Submission{
					Content:    content,
					Filename:   filepath.Base(path),
					Sender:     ingestSender,
					ReceivedAt: time.Now().UTC(),
					Tenant:     ingestTenant,
				})
				if res.Outcome == service.OutcomeFailed {
					failed++
				}
				if err := enc.Encode(res); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed", failed, len(args))
			}
			return nil
		})
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestTenant, "tenant", "", "tenant name (default from config)")
	ingestCmd.Flags().StringVar(&ingestSender, "sender", "invoicectl", "sender recorded with the submission")
}
