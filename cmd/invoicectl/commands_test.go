package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isnex/invoice-loader/internal/invoice/invoicetest"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestExtractCommand(t *testing.T) {
	output := filepath.Join(t.TempDir(), "invoice.json")

	_, err := execute(t, "extract", invoicetest.WriteLSInvoice(t), "-o", output)
	require.NoError(t, err)

	raw, err := os.ReadFile(output)
	require.NoError(t, err)

	var data map[string]any
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, "20250123", data["invoice_number"])
}

func TestEncodeCommand(t *testing.T) {
	output := filepath.Join(t.TempDir(), "invoice.xml")

	_, err := execute(t, "encode", invoicetest.WriteLSInvoice(t), "-o", output)
	require.NoError(t, err)

	raw, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<ID>20250123</ID>")
}

func TestExtractCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "extract", filepath.Join(t.TempDir(), "none.pdf"))
	assert.Error(t, err)
}

func TestExtractCommand_UnknownLayout(t *testing.T) {
	_, err := execute(t, "extract", invoicetest.WriteLSInvoice(t), "--layout", "nope", "-o", filepath.Join(t.TempDir(), "x.json"))
	assert.Error(t, err)
	extractLayout = "ls"
}

func TestSummaryCommand_BadDay(t *testing.T) {
	_, err := execute(t, "summary", "--day", "16.09.2025")
	assert.Error(t, err)
	summaryDay = ""
}
