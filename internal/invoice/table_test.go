package invoice

import (
	"fmt"
	"strings"
	"testing"

	"github.com/isnex/invoice-loader/internal/invoice/invoicetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const tableHeader = "č. Názov Množstvo MJ Zľava Cena bez DPH Cena s DPH Spolu s DPH"

func TestTableParser_Parse_FixtureItems(t *testing.T) {
	parser := NewTableParser(zap.NewNop())
	items := parser.Parse(LSLayout().Table, normalizeText(invoicetest.LSInvoice))

	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, 1, first.LineNumber)
	assert.Equal(t, "Coca Cola 0,5", first.Description)
	assert.Equal(t, "6", first.Quantity.Decimal.String())
	assert.Equal(t, "KS", first.Unit)
	assert.False(t, first.DiscountPercent.Valid)
	assert.Equal(t, "0.80", first.UnitPriceNoVAT.Decimal.StringFixed(2))
	assert.Equal(t, "0.98", first.UnitPriceWithVAT.Decimal.StringFixed(2))
	assert.Equal(t, "5.90", first.TotalWithVAT.Decimal.StringFixed(2))
	assert.Equal(t, "293495", first.ItemCode)
	assert.Equal(t, "8586000000001", first.EAN)
	assert.Equal(t, "23", first.VATRate.Decimal.String())

	second := items[1]
	assert.Equal(t, 2, second.LineNumber)
	assert.Equal(t, "Stretch folia", second.Description)
	assert.Equal(t, "10", second.DiscountPercent.Decimal.String())
	assert.Equal(t, "293496", second.ItemCode)
	assert.Empty(t, second.EAN)
	assert.Equal(t, "23", second.VATRate.Decimal.String())
}

func TestTableParser_Parse_NItemsWithNoise(t *testing.T) {
	parser := NewTableParser(zap.NewNop())
	spec := LSLayout().Table

	for _, n := range []int{1, 3, 12} {
		t.Run(fmt.Sprintf("%d items", n), func(t *testing.T) {
			var b strings.Builder
			b.WriteString("hlavička dokladu\n")
			b.WriteString(tableHeader + "\n")
			for i := 1; i <= n; i++ {
				// source numbering deliberately differs from the ordinal
				fmt.Fprintf(&b, "%d Tovar číslo %d %d KS 1.00 1.23 %d.23\n", i*10, i, i, i)
				fmt.Fprintf(&b, "%d %013d 23%%\n", 100000+i, i)
				b.WriteString("Poznámka: prenesená daňová povinnosť\n")
			}
			b.WriteString("23% Základ DPH 1.00 EUR\n")
			b.WriteString("1 Mimo tabuľky 1 KS 1.00 1.00 1.00\n")

			items := parser.Parse(spec, b.String())

			require.Len(t, items, n)
			for i, item := range items {
				assert.Equal(t, i+1, item.LineNumber)
				assert.Equal(t, fmt.Sprintf("Tovar číslo %d", i+1), item.Description)
				assert.Equal(t, fmt.Sprintf("%d", 100000+i+1), item.ItemCode)
				assert.Len(t, item.EAN, 13)
			}
		})
	}
}

func TestTableParser_Parse_NoHeader(t *testing.T) {
	parser := NewTableParser(zap.NewNop())
	items := parser.Parse(LSLayout().Table, "1 Tovar 1 KS 1.00 1.23 1.23\n")

	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestTableParser_Parse_NoFooterRunsToEnd(t *testing.T) {
	parser := NewTableParser(zap.NewNop())
	text := tableHeader + "\n1 Olej 5 L 2.00 2.46 12.30\n"

	items := parser.Parse(LSLayout().Table, text)

	require.Len(t, items, 1)
	assert.Equal(t, "L", items[0].Unit)
	assert.Empty(t, items[0].ItemCode)
	assert.False(t, items[0].VATRate.Valid)
}

func TestTableParser_Parse_SecondaryWithoutOpenItemIgnored(t *testing.T) {
	parser := NewTableParser(zap.NewNop())
	text := tableHeader + "\n293495 8586000000001 23%\n1 Olej 5 L 2.00 2.46 12.30\n"

	items := parser.Parse(LSLayout().Table, text)

	require.Len(t, items, 1)
	assert.Empty(t, items[0].ItemCode)
}
