// Package isdoc renders canonical invoices as ISDOC interchange documents.
package isdoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/isnex/invoice-loader/internal/domain/entity"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrMissingIdentifier is returned when the invoice number or supplier
// registration number needed to identify the document is absent
var ErrMissingIdentifier = errors.New("missing document identifier")

// EncodingError reports why an invoice could not be encoded
type EncodingError struct {
	InvoiceNumber string
	Field         string
	Err           error
}

func (e *EncodingError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("encode invoice %q: %s: %v", e.InvoiceNumber, e.Field, e.Err)
	}
	return fmt.Sprintf("encode invoice %q: %v", e.InvoiceNumber, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// documentNamespace seeds the name-based document UUIDs
var documentNamespace = uuid.MustParse("6f1c1c84-3b59-4a8e-9d4e-1b2f0c7a5e10")

const zeroAmount = "0.00"

// Config holds encoder settings
type Config struct {
	IssuingSystem      string
	AgreementReference string
	DefaultVATRate     decimal.Decimal
	CountryCode        string
	CountryName        string
}

// DefaultConfig returns the settings used for Slovak suppliers
func DefaultConfig() Config {
	return Config{
		IssuingSystem:      "Supplier Invoice Loader",
		AgreementReference: "Elektronická fakturácia",
		DefaultVATRate:     decimal.NewFromInt(23),
		CountryCode:        "SK",
		CountryName:        "Slovenská republika",
	}
}

// Encoder converts entity.InvoiceData into ISDOC XML.
// Encoding is deterministic: the same invoice always yields the same bytes.
type Encoder struct {
	cfg    Config
	logger *zap.Logger
}

// NewEncoder creates a new ISDOC encoder
func NewEncoder(cfg Config, logger *zap.Logger) *Encoder {
	return &Encoder{
		cfg:    cfg,
		logger: logger,
	}
}

// DocumentUUID derives the stable document identifier from the supplier
// registration number and the invoice number
func DocumentUUID(supplierICO, invoiceNumber string) string {
	id := uuid.NewSHA1(documentNamespace, []byte(supplierICO+"/"+invoiceNumber))
	return strings.ToUpper(id.String())
}

// Encode renders the invoice as an indented, UTF-8 ISDOC document
func (e *Encoder) Encode(data *entity.InvoiceData) ([]byte, error) {
	if data == nil {
		return nil, &EncodingError{Err: fmt.Errorf("%w: nil invoice", ErrMissingIdentifier)}
	}
	if data.InvoiceNumber == "" {
		return nil, &EncodingError{Field: entity.RequiredInvoiceNumber, Err: ErrMissingIdentifier}
	}
	if data.Supplier.ICO == "" {
		return nil, &EncodingError{InvoiceNumber: data.InvoiceNumber, Field: entity.RequiredSupplierICO, Err: ErrMissingIdentifier}
	}

	doc := e.build(data)

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, &EncodingError{InvoiceNumber: data.InvoiceNumber, Err: err}
	}
	if err := enc.Close(); err != nil {
		return nil, &EncodingError{InvoiceNumber: data.InvoiceNumber, Err: err}
	}
	buf.WriteString("\n")

	e.logger.Debug("ISDOC document encoded",
		zap.String("invoice_number", data.InvoiceNumber),
		zap.Int("lines", len(data.Items)),
		zap.Int("bytes", buf.Len()))

	return buf.Bytes(), nil
}

func (e *Encoder) build(data *entity.InvoiceData) *document {
	currency := data.Currency
	if currency == "" {
		currency = entity.DefaultCurrency
	}

	taxPoint := data.TaxPointDate
	if taxPoint.IsZero() {
		taxPoint = data.IssueDate
	}

	doc := &document{
		Version:                 Version,
		DocumentType:            "1",
		ID:                      data.InvoiceNumber,
		UUID:                    DocumentUUID(data.Supplier.ICO, data.InvoiceNumber),
		IssuingSystem:           e.cfg.IssuingSystem,
		IssueDate:               data.IssueDate.ISO(),
		TaxPointDate:            taxPoint.ISO(),
		VATApplicable:           "true",
		Note:                    "Faktúra č. " + data.InvoiceNumber,
		LocalCurrencyCode:       currency,
		CurrencyCode:            currency,
		AccountingSupplierParty: partyRole{Party: e.party(data.Supplier)},
		AccountingCustomerParty: partyRole{Party: e.party(data.Customer)},
		PaymentMeans:            e.paymentMeans(data),
		TaxTotal: taxTotal{
			TaxAmount: amount(data.TaxAmount),
			TaxSubTotal: taxSubTotal{
				TaxableAmount: amount(data.NetAmount),
				TaxAmount:     amount(data.TaxAmount),
				TaxCategory: taxCategory{
					Percent:              e.headerVATRate(data),
					VATCalculationMethod: "0",
				},
			},
		},
		LegalMonetaryTotal: monetaryTotal{
			TaxExclusiveAmount:               amount(data.NetAmount),
			TaxInclusiveAmount:               amount(data.TotalAmount),
			AlreadyClaimedTaxExclusiveAmount: zeroAmount,
			AlreadyClaimedTaxInclusiveAmount: zeroAmount,
			DifferenceTaxExclusiveAmount:     amount(data.NetAmount),
			DifferenceTaxInclusiveAmount:     amount(data.TotalAmount),
			PayableAmount:                    amount(data.TotalAmount),
		},
	}

	doc.ElectronicPossibilityAgreementReference = e.cfg.AgreementReference

	if data.Customer.Name != "" {
		doc.Delivery = &delivery{DeliveryParty: deliveryParty{PartyName: partyName{Name: data.Customer.Name}}}
	}

	doc.InvoiceLines = make([]invoiceLine, 0, len(data.Items))
	for _, it := range data.Items {
		doc.InvoiceLines = append(doc.InvoiceLines, e.line(it))
	}

	return doc
}

func (e *Encoder) party(p entity.Party) party {
	var out party
	if p.Name != "" {
		out.PartyName = &partyName{Name: p.Name}
	}
	if p.ICO != "" {
		out.PartyIdentification = &identifier{ID: p.ICO}
	}
	if p.Address != "" {
		parts := strings.SplitN(p.Address, ",", 2)
		addr := &postalAddress{
			StreetName: strings.TrimSpace(parts[0]),
			Country:    country{IdentificationCode: e.cfg.CountryCode, Name: e.cfg.CountryName},
		}
		if len(parts) == 2 {
			addr.CityName = strings.TrimSpace(parts[1])
		}
		out.PostalAddress = addr
	}
	if p.DIC != "" {
		out.PartyTaxSchemes = append(out.PartyTaxSchemes, partyTaxScheme{CompanyID: p.DIC, TaxScheme: "DIČ"})
	}
	if p.ICDPH != "" {
		out.PartyTaxSchemes = append(out.PartyTaxSchemes, partyTaxScheme{CompanyID: p.ICDPH, TaxScheme: "VAT"})
	}
	return out
}

func (e *Encoder) paymentMeans(data *entity.InvoiceData) paymentMeans {
	pm := paymentMeans{
		Payment: payment{
			PaidAmount:     amount(data.TotalAmount),
			PaymentDueDate: data.DueDate.ISO(),
		},
		VariableSymbol: data.Bank.VariableSymbol,
		ConstantSymbol: data.Bank.ConstantSymbol,
	}
	if data.Bank.IBAN != "" {
		account := &financialAccount{ID: data.Bank.IBAN, Name: data.Bank.BankName}
		if data.Bank.BIC != "" {
			account.FinancialInstitutionBranch = &identifier{ID: data.Bank.BIC}
		}
		pm.PayeeFinancialAccount = account
	}
	return pm
}

func (e *Encoder) line(it entity.InvoiceItem) invoiceLine {
	out := invoiceLine{
		ID:                              strconv.Itoa(it.LineNumber),
		InvoicedQuantity:                quantity{Value: amount(it.Quantity), UnitCode: it.Unit},
		LineExtensionAmount:             amount(it.LineTotalNoVAT()),
		LineExtensionAmountTaxInclusive: amount(it.TotalWithVAT),
		UnitPrice:                       amount(it.UnitPriceNoVAT),
		UnitPriceTaxInclusive:           amount(it.UnitPriceWithVAT),
		ClassifiedTaxCategory: taxCategory{
			Percent:              amount(it.VATRate),
			VATCalculationMethod: "0",
		},
		Item: item{Description: it.Description},
	}
	if it.ItemCode != "" {
		out.Item.SellersItemIdentification = &identifier{ID: it.ItemCode}
	}
	if it.EAN != "" {
		out.Item.StandardItemIdentification = &identifier{ID: it.EAN}
	}
	return out
}

// headerVATRate uses the rate shared by all lines, else the configured default
func (e *Encoder) headerVATRate(data *entity.InvoiceData) string {
	if rate := data.DominantVATRate(); rate.Valid {
		return rate.Decimal.StringFixed(2)
	}
	return e.cfg.DefaultVATRate.StringFixed(2)
}

// amount renders a money value with two decimals; unknown values render as
// the schema placeholder 0.00
func amount(v decimal.NullDecimal) string {
	if !v.Valid {
		return zeroAmount
	}
	return v.Decimal.StringFixed(2)
}
