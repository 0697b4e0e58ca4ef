package invoice

import (
	"strings"

	"github.com/isnex/invoice-loader/internal/domain/entity"
	"go.uber.org/zap"
)

// Extractor turns invoice text into entity.InvoiceData using pattern layouts.
// Extraction is best effort: a field whose pattern does not match is left
// absent and never raises an error.
type Extractor struct {
	registry *Registry
	tables   *TableParser
	logger   *zap.Logger
}

// NewExtractor creates a new invoice extractor over the given layouts
func NewExtractor(registry *Registry, logger *zap.Logger) *Extractor {
	return &Extractor{
		registry: registry,
		tables:   NewTableParser(logger),
		logger:   logger,
	}
}

// Extract detects the document layout and extracts header and line items
func (e *Extractor) Extract(text string) *entity.InvoiceData {
	text = normalizeText(text)
	return e.extract(e.registry.Detect(text), text)
}

// ExtractWithLayout extracts using an explicit layout variant
func (e *Extractor) ExtractWithLayout(variant, text string) (*entity.InvoiceData, bool) {
	layout, ok := e.registry.Get(variant)
	if !ok {
		return nil, false
	}
	return e.extract(layout, normalizeText(text)), true
}

func (e *Extractor) extract(layout *Layout, text string) *entity.InvoiceData {
	data := &entity.InvoiceData{Variant: layout.Variant}

	var missing []string
	for _, fp := range layout.Fields {
		raw, ok := fp.find(text)
		if !ok {
			missing = append(missing, string(fp.Field))
			continue
		}
		e.assign(data, fp.Field, raw)
	}

	if applied := applyFallbacks(data, layout.Fallbacks); len(applied) > 0 {
		e.logger.Debug("Applied identity fallbacks", zap.Any("fields", applied))
	}
	if data.Currency == "" {
		data.Currency = entity.DefaultCurrency
	}

	data.Items = e.tables.Parse(layout.Table, text)

	e.logger.Info("Invoice text extracted",
		zap.String("variant", layout.Variant),
		zap.String("invoice_number", data.InvoiceNumber),
		zap.Int("item_count", len(data.Items)),
		zap.Strings("unmatched_fields", missing))

	return data
}

// assign normalizes a raw capture and stores it on data
func (e *Extractor) assign(data *entity.InvoiceData, field Field, raw string) {
	switch field {
	case FieldIssueDate, FieldDueDate, FieldTaxPointDate:
		date, ok := ParseDate(raw)
		if !ok {
			e.logger.Debug("Unparseable date", zap.String("field", string(field)), zap.String("raw", raw))
			return
		}
		switch field {
		case FieldIssueDate:
			data.IssueDate = date
		case FieldDueDate:
			data.DueDate = date
		default:
			data.TaxPointDate = date
		}

	case FieldNetAmount:
		data.NetAmount = ParseAmount(raw)
	case FieldTaxAmount:
		data.TaxAmount = ParseAmount(raw)
	case FieldTotalAmount:
		data.TotalAmount = ParseAmount(raw)

	case FieldCustomerName:
		data.Customer.Name = CleanPartyName(raw)

	case FieldSupplierICO, FieldSupplierDIC, FieldSupplierICDPH,
		FieldCustomerICO, FieldCustomerDIC, FieldCustomerICDPH,
		FieldIBAN, FieldVariableSymbol, FieldConstantSymbol:
		*stringField(data, field) = StripSpaces(raw)

	default:
		if target := stringField(data, field); target != nil {
			*target = strings.TrimSpace(raw)
		}
	}
}
