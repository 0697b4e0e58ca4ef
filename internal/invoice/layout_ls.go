package invoice

import "regexp"

// VariantLS tags the L & Š, s.r.o. invoice layout
const VariantLS = "ls"

const (
	lsSupplierName      = "L & Š, s.r.o."
	magerstavICO        = "31436871"
	magerstavName       = "MÁGERSTAV, spol. s r.o."
	datePattern         = `(\d\s*\d?\s*\.\s*\d\s*\d?\s*\.\s*\d\s*\d\s*\d\s*\d)`
	spacedAmountPattern = `([\d\s]+\.\s*[\d\s]+)`
)

func headerPattern(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)` + expr)
}

// LSLayout returns the layout of invoices issued by L & Š, s.r.o.
func LSLayout() *Layout {
	return &Layout{
		Variant:  VariantLS,
		Supplier: lsSupplierName,
		Markers: []*regexp.Regexp{
			headerPattern(`L\s*&\s*Š,\s*s\.r\.o\.`),
		},
		Fields: []FieldPattern{
			{FieldInvoiceNumber, headerPattern(`FAKTÚRA[^\d]*?(\d+)`)},
			{FieldIssueDate, headerPattern(`Dátum\s+vystavenia[:\s]*` + datePattern)},
			{FieldDueDate, headerPattern(`Dátum\s+splatnosti[^\d]*?` + datePattern)},
			{FieldTaxPointDate, headerPattern(`Dátum\s+daňovej\s+povinnosti[:\s]*` + datePattern)},
			{FieldNetAmount, headerPattern(`Základ\s+DPH\s+` + spacedAmountPattern + `\s*E\s*U\s*R`)},
			{FieldTaxAmount, headerPattern(`(?:^|\n)DPH\s+` + spacedAmountPattern + `\s*E\s*U\s*R`)},
			{FieldTotalAmount, headerPattern(`Celkom\s+k\s+úhrade\s+([\d\s]+\.[\d\s]+)\s*EUR`)},
			{FieldSupplierName, headerPattern(`L\s*&\s*Š,\s*s\.r\.o\.`)},
			{FieldSupplierICO, headerPattern(`IČO:\s*(\d{8})`)},
			{FieldSupplierDIC, headerPattern(`DIČ:\s*(\d{10})`)},
			{FieldSupplierICDPH, headerPattern(`IČ\s+DPH:\s*(SK\d{10})`)},
			{FieldCustomerName, headerPattern(`([A-ZÁČĎÉÍĹĽŇÓŔŠŤÚÝŽ][^\n]{5,})\s*\n[^\n]*IČO\s+odberateľ`)},
			{FieldCustomerICO, headerPattern(`IČO\s+odberateľ:\s*(\d(?:\s*\d){7})`)},
			{FieldCustomerDIC, headerPattern(`DIČ\s+odberateľ:\s*(\d(?:\s*\d){9})`)},
			{FieldCustomerICDPH, headerPattern(`IČDPH\s+odberateľ:\s*(S\s*K(?:\s*\d){10})`)},
			{FieldIBAN, headerPattern(`IBAN[:\s]*(SK\s*\d\s*\d[\d\s]{20,})`)},
			{FieldBIC, headerPattern(`BIC[:\s]*([A-Z]{6,11})`)},
			{FieldVariableSymbol, headerPattern(`Variabilný\s+symbol[:\s]*(\d(?:\s*\d){7})`)},
			{FieldConstantSymbol, headerPattern(`Konštantný\s+symbol[:\s]*(\d(?:\s*\d){3})`)},
		},
		Table: TableSpec{
			Header:    regexp.MustCompile(`(?i)č\.\s+Názov.*?Spolu s DPH`),
			Footer:    regexp.MustCompile(`(?i)%\s+Základ\s+DPH`),
			Primary:   primaryLinePattern([]string{"KS", "L", "M", "KG"}),
			Secondary: regexp.MustCompile(`^(\d+)\s+(\d{10,14})?\s*(?:AKCIA\s+)?(\d+)%`),
		},
		Fallbacks: []IdentityFallback{
			{Field: FieldSupplierName, Value: lsSupplierName},
			{Field: FieldCustomerName, KeyField: FieldCustomerICO, Key: magerstavICO, Value: magerstavName},
		},
	}
}
