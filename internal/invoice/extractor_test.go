package invoice

import (
	"testing"

	"github.com/isnex/invoice-loader/internal/domain/entity"
	"github.com/isnex/invoice-loader/internal/invoice/invoicetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestExtractor() *Extractor {
	return NewExtractor(DefaultRegistry(), zap.NewNop())
}

func TestExtractor_Extract_LSInvoice(t *testing.T) {
	data := newTestExtractor().Extract(invoicetest.LSInvoice)

	require.NotNil(t, data)
	assert.Equal(t, VariantLS, data.Variant)
	assert.Equal(t, "20250123", data.InvoiceNumber)
	assert.Equal(t, "2025-09-16", data.IssueDate.ISO())
	assert.Equal(t, "2025-09-16", data.TaxPointDate.ISO())
	assert.Equal(t, "2025-09-30", data.DueDate.ISO())
	assert.Equal(t, "29.80", data.NetAmount.Decimal.StringFixed(2))
	assert.Equal(t, "6.85", data.TaxAmount.Decimal.StringFixed(2))
	assert.Equal(t, "36.65", data.TotalAmount.Decimal.StringFixed(2))
	assert.Equal(t, "EUR", data.Currency)

	assert.Equal(t, "L & Š, s.r.o.", data.Supplier.Name)
	assert.Equal(t, "36555720", data.Supplier.ICO)
	assert.Equal(t, "2021234567", data.Supplier.DIC)
	assert.Equal(t, "SK2021234567", data.Supplier.ICDPH)

	assert.Equal(t, "MÁGERSTAV, spol. s r.o.", data.Customer.Name)
	assert.Equal(t, "31436871", data.Customer.ICO)
	assert.Equal(t, "2020412345", data.Customer.DIC)
	assert.Equal(t, "SK2020412345", data.Customer.ICDPH)

	assert.Equal(t, "SK3112000000198742637541", data.Bank.IBAN)
	assert.Equal(t, "SUBASKBX", data.Bank.BIC)
	assert.Equal(t, "20250123", data.Bank.VariableSymbol)
	assert.Equal(t, "0308", data.Bank.ConstantSymbol)

	require.Len(t, data.Items, 2)
	assert.Empty(t, data.MissingRequired())
	assert.Equal(t, "36.65", data.ItemsTotal().Decimal.StringFixed(2))
}

func TestExtractor_Extract_MissingFieldsStayAbsent(t *testing.T) {
	data := newTestExtractor().Extract("L & Š, s.r.o.\nnothing else here")

	require.NotNil(t, data)
	assert.Empty(t, data.InvoiceNumber)
	assert.True(t, data.IssueDate.IsZero())
	assert.False(t, data.TotalAmount.Valid)
	assert.False(t, data.TaxAmount.Valid)
	assert.Empty(t, data.Items)
	assert.Equal(t, "EUR", data.Currency)
	assert.ElementsMatch(t,
		[]string{entity.RequiredInvoiceNumber, entity.RequiredTotalAmount, entity.RequiredSupplierICO, entity.RequiredItems},
		data.MissingRequired())
}

func TestExtractor_Extract_EmptyTableKeepsHeader(t *testing.T) {
	text := `L & Š, s.r.o.
IČO: 36555720
FAKTÚRA č. 777
Dátum vystavenia: 01.02.2025
Celkom k úhrade 10.00 EUR`

	data := newTestExtractor().Extract(text)

	assert.Equal(t, "777", data.InvoiceNumber)
	assert.Equal(t, "2025-02-01", data.IssueDate.ISO())
	assert.Equal(t, "10.00", data.TotalAmount.Decimal.StringFixed(2))
	assert.NotNil(t, data.Items)
	assert.Empty(t, data.Items)
	assert.Equal(t, []string{entity.RequiredItems}, data.MissingRequired())
}

func TestExtractor_CustomerNameFallback(t *testing.T) {
	tests := []struct {
		name     string
		nameLine string
		ico      string
		expected string
	}{
		{"technical marker replaced", "OBJ: 4500012345 zo dna", "31436871", "MÁGERSTAV, spol. s r.o."},
		{"too short replaced", "Sklad 7", "31436871", "MÁGERSTAV, spol. s r.o."},
		{"trusted name kept", "Stavebniny Novák s.r.o.", "31436871", "Stavebniny Novák s.r.o."},
		{"other customer untouched", "OBJ: 4500012345 zo dna", "12345678", "OBJ: 4500012345 zo dna"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := "L & Š, s.r.o.\n" + tt.nameLine + "\nadresa IČO odberateľ: " + tt.ico + "\n"
			data := newTestExtractor().Extract(text)
			assert.Equal(t, tt.expected, data.Customer.Name)
		})
	}
}

func TestExtractor_SupplierNameFallback(t *testing.T) {
	data, ok := newTestExtractor().ExtractWithLayout(VariantLS, "FAKTÚRA č. 1")
	require.True(t, ok)
	assert.Equal(t, "L & Š, s.r.o.", data.Supplier.Name)
}

func TestExtractor_ExtractWithLayout_UnknownVariant(t *testing.T) {
	_, ok := newTestExtractor().ExtractWithLayout("acme", "text")
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	t.Run("rejects unregistered default", func(t *testing.T) {
		_, err := NewRegistry("acme", LSLayout())
		assert.Error(t, err)
	})

	t.Run("rejects duplicate variant", func(t *testing.T) {
		_, err := NewRegistry(VariantLS, LSLayout(), LSLayout())
		assert.Error(t, err)
	})

	t.Run("falls back to default layout", func(t *testing.T) {
		r := DefaultRegistry()
		assert.Equal(t, VariantLS, r.Detect("unknown supplier").Variant)
		assert.Equal(t, []string{VariantLS}, r.Variants())
	})
}
