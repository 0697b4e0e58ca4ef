package entity

import (
	"github.com/shopspring/decimal"
)

// Party is one side of an invoice (supplier or customer)
type Party struct {
	Name    string `json:"name"`
	ICO     string `json:"ico"`    // national company registration number
	DIC     string `json:"dic"`    // tax identification number
	ICDPH   string `json:"ic_dph"` // VAT identification number
	Address string `json:"address,omitempty"`
}

// BankDetails holds payment instructions printed on the invoice
type BankDetails struct {
	IBAN           string `json:"iban,omitempty"`
	BIC            string `json:"bic,omitempty"`
	BankName       string `json:"bank_name,omitempty"`
	VariableSymbol string `json:"variable_symbol,omitempty"`
	ConstantSymbol string `json:"constant_symbol,omitempty"`
}

// InvoiceItem is a single line of the invoice table.
// Numeric fields that could not be read stay invalid, never zero.
type InvoiceItem struct {
	LineNumber       int                 `json:"line_number"`
	ItemCode         string              `json:"item_code,omitempty"`
	EAN              string              `json:"ean,omitempty"`
	Description      string              `json:"description"`
	Quantity         decimal.NullDecimal `json:"quantity"`
	Unit             string              `json:"unit"`
	UnitPriceNoVAT   decimal.NullDecimal `json:"unit_price_no_vat"`
	UnitPriceWithVAT decimal.NullDecimal `json:"unit_price_with_vat"`
	TotalWithVAT     decimal.NullDecimal `json:"total_with_vat"`
	VATRate          decimal.NullDecimal `json:"vat_rate"`
	DiscountPercent  decimal.NullDecimal `json:"discount_percent"`
}

// LineTotalNoVAT returns quantity x unit price without VAT when both are known
func (i InvoiceItem) LineTotalNoVAT() decimal.NullDecimal {
	if !i.Quantity.Valid || !i.UnitPriceNoVAT.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(i.Quantity.Decimal.Mul(i.UnitPriceNoVAT.Decimal))
}

// InvoiceData is the canonical, best-effort extraction result of one invoice.
// It performs no cross-field validation; see MissingRequired.
type InvoiceData struct {
	InvoiceNumber string              `json:"invoice_number"`
	IssueDate     Date                `json:"issue_date"`
	DueDate       Date                `json:"due_date"`
	TaxPointDate  Date                `json:"tax_point_date"`
	TotalAmount   decimal.NullDecimal `json:"total_amount"`
	TaxAmount     decimal.NullDecimal `json:"tax_amount"`
	NetAmount     decimal.NullDecimal `json:"net_amount"`
	Currency      string              `json:"currency"`
	Supplier      Party               `json:"supplier"`
	Customer      Party               `json:"customer"`
	Bank          BankDetails         `json:"bank"`
	Items         []InvoiceItem       `json:"items"`
	Variant       string              `json:"variant,omitempty"`
}

// Required field names reported by MissingRequired
const (
	RequiredInvoiceNumber = "invoice_number"
	RequiredTotalAmount   = "total_amount"
	RequiredSupplierICO   = "supplier_ico"
	RequiredItems         = "items"
)

// MissingRequired lists the fields a complete extraction must carry.
// An empty result means the invoice is complete.
func (d *InvoiceData) MissingRequired() []string {
	var missing []string
	if d.InvoiceNumber == "" {
		missing = append(missing, RequiredInvoiceNumber)
	}
	if !d.TotalAmount.Valid {
		missing = append(missing, RequiredTotalAmount)
	}
	if d.Supplier.ICO == "" {
		missing = append(missing, RequiredSupplierICO)
	}
	if len(d.Items) == 0 {
		missing = append(missing, RequiredItems)
	}
	return missing
}

// ItemsTotal sums the VAT-inclusive line totals.
// It is invalid when there are no items or any line total is unknown.
func (d *InvoiceData) ItemsTotal() decimal.NullDecimal {
	if len(d.Items) == 0 {
		return decimal.NullDecimal{}
	}
	sum := decimal.Zero
	for _, item := range d.Items {
		if !item.TotalWithVAT.Valid {
			return decimal.NullDecimal{}
		}
		sum = sum.Add(item.TotalWithVAT.Decimal)
	}
	return decimal.NewNullDecimal(sum)
}

// DominantVATRate returns the VAT rate shared by every item that declares one.
// Mixed or missing rates yield an invalid value.
func (d *InvoiceData) DominantVATRate() decimal.NullDecimal {
	var rate decimal.NullDecimal
	for _, item := range d.Items {
		if !item.VATRate.Valid {
			continue
		}
		if !rate.Valid {
			rate = item.VATRate
			continue
		}
		if !rate.Decimal.Equal(item.VATRate.Decimal) {
			return decimal.NullDecimal{}
		}
	}
	return rate
}
