package main

import (
	"github.com/spf13/cobra"

	"github.com/isnex/invoice-loader/internal/config"
	"github.com/isnex/invoice-loader/internal/container"
)

var (
	encodeOutput  string
	encodeVATRate float64
)

var encodeCmd = &cobra.Command{
	Use:   "encode [file]",
	Short: "Extract a document and print its ISDOC XML",
	Example: `  invoicectl encode faktura.pdf -o faktura.xml
  invoicectl encode faktura.pdf --vat-rate 20`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := extractFile(cmd, args[0])
		if err != nil {
			return err
		}

		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		doc, err := container.ProvideEncoder(&config.EncodingConfig{DefaultVATRate: encodeVATRate}, logger).Encode(data)
		if err != nil {
			return err
		}
		return writeOutput(encodeOutput, doc)
	},
}

func init() {
	addExtractionFlags(encodeCmd)
	encodeCmd.Flags().StringVarP(&encodeOutput, "output", "o", "", "output file (default stdout)")
	encodeCmd.Flags().Float64Var(&encodeVATRate, "vat-rate", 23, "VAT rate used when the invoice shows none")
}
