package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/isnex/invoice-loader/internal/config"
	"github.com/isnex/invoice-loader/internal/container"
	"github.com/isnex/invoice-loader/internal/domain/entity"
	"github.com/isnex/invoice-loader/internal/invoice"
)

var (
	extractLayout   string
	extractMaxPages int
	extractOutput   string
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract invoice fields from a PDF or text file",
	Long: `Read the document text, detect the supplier layout and print the
extracted invoice as JSON. Nothing is stored.`,
	Example: `  invoicectl extract faktura.pdf
  invoicectl extract faktura.txt -o faktura.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := extractFile(cmd, args[0])
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return err
		}
		return writeOutput(extractOutput, append(out, '\n'))
	},
}

func init() {
	addExtractionFlags(extractCmd)
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "output file (default stdout)")
}

func addExtractionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&extractLayout, "layout", invoice.VariantLS, "layout used when no supplier marker matches")
	cmd.Flags().IntVar(&extractMaxPages, "max-pages", 20, "maximum number of PDF pages to read")
}

func extractFile(cmd *cobra.Command, path string) (*entity.InvoiceData, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	reader, extractor, err := container.ProvideExtraction(&config.ExtractionConfig{
		DefaultLayout: extractLayout,
		MaxPages:      extractMaxPages,
	}, logger)
	if err != nil {
		return nil, err
	}

	text, err := reader.ReadText(cmd.Context(), filepath.Base(path), content)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}

	data := extractor.Extract(text)
	if missing := data.MissingRequired(); len(missing) > 0 {
		logger.Warn("Extraction incomplete")
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: missing fields: %v\n", missing)
	}
	return data, nil
}
