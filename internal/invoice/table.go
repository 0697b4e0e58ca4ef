package invoice

import (
	"strings"

	"github.com/isnex/invoice-loader/internal/domain/entity"
	"go.uber.org/zap"
)

// TableParser reads line items with a two-line record state machine:
// a primary line opens an item, the following secondary line enriches it.
type TableParser struct {
	logger *zap.Logger
}

// NewTableParser creates a new line-item table parser
func NewTableParser(logger *zap.Logger) *TableParser {
	return &TableParser{logger: logger}
}

// Parse returns items in document order with sequential line numbers.
// A missing table header yields an empty list, never an error.
func (p *TableParser) Parse(spec TableSpec, text string) []entity.InvoiceItem {
	region, ok := tableRegion(spec, text)
	if !ok {
		p.logger.Warn("Line-item table header not found")
		return []entity.InvoiceItem{}
	}

	items := make([]entity.InvoiceItem, 0)
	var current *entity.InvoiceItem

	flush := func() {
		if current != nil {
			items = append(items, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(region, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := spec.Primary.FindStringSubmatch(line); m != nil {
			flush()
			current = &entity.InvoiceItem{
				LineNumber:       len(items) + 1,
				Description:      strings.TrimSpace(m[2]),
				Quantity:         ParseAmount(m[3]),
				Unit:             m[4],
				DiscountPercent:  ParseAmount(m[5]),
				UnitPriceNoVAT:   ParseAmount(m[6]),
				UnitPriceWithVAT: ParseAmount(m[7]),
				TotalWithVAT:     ParseAmount(m[8]),
			}
			continue
		}

		if current == nil {
			continue
		}

		if m := spec.Secondary.FindStringSubmatch(line); m != nil {
			current.ItemCode = m[1]
			if isEAN(m[2]) {
				current.EAN = m[2]
			}
			current.VATRate = ParseAmount(m[3])
		}
	}
	flush()

	p.logger.Debug("Parsed line items", zap.Int("count", len(items)))
	return items
}

// tableRegion cuts the text between the header and footer markers.
// A missing footer extends the region to the end of text.
func tableRegion(spec TableSpec, text string) (string, bool) {
	loc := spec.Header.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	region := text[loc[1]:]
	if end := spec.Footer.FindStringIndex(region); end != nil {
		region = region[:end[0]]
	}
	return region, true
}

func isEAN(s string) bool {
	if len(s) < 10 || len(s) > 14 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
