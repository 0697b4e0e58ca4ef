package isdoc

import "encoding/xml"

// Namespace and Version identify the ISDOC schema the encoder targets
const (
	Namespace = "http://isdoc.cz/namespace/2013"
	Version   = "6.0.1"
)

// Struct field order is the element order of the schema.

type document struct {
	XMLName                                 xml.Name      `xml:"http://isdoc.cz/namespace/2013 Invoice"`
	Version                                 string        `xml:"version,attr"`
	DocumentType                            string        `xml:"DocumentType"`
	ID                                      string        `xml:"ID"`
	UUID                                    string        `xml:"UUID"`
	IssuingSystem                           string        `xml:"IssuingSystem,omitempty"`
	IssueDate                               string        `xml:"IssueDate,omitempty"`
	TaxPointDate                            string        `xml:"TaxPointDate,omitempty"`
	VATApplicable                           string        `xml:"VATApplicable"`
	ElectronicPossibilityAgreementReference string        `xml:"ElectronicPossibilityAgreementReference"`
	Note                                    string        `xml:"Note,omitempty"`
	LocalCurrencyCode                       string        `xml:"LocalCurrencyCode"`
	CurrencyCode                            string        `xml:"CurrencyCode"`
	AccountingSupplierParty                 partyRole     `xml:"AccountingSupplierParty"`
	AccountingCustomerParty                 partyRole     `xml:"AccountingCustomerParty"`
	Delivery                                *delivery     `xml:"Delivery,omitempty"`
	PaymentMeans                            paymentMeans  `xml:"PaymentMeans"`
	TaxTotal                                taxTotal      `xml:"TaxTotal"`
	LegalMonetaryTotal                      monetaryTotal `xml:"LegalMonetaryTotal"`
	InvoiceLines                            []invoiceLine `xml:"InvoiceLine"`
}

type partyRole struct {
	Party party `xml:"Party"`
}

type party struct {
	PartyIdentification *identifier      `xml:"PartyIdentification,omitempty"`
	PartyName           *partyName       `xml:"PartyName,omitempty"`
	PostalAddress       *postalAddress   `xml:"PostalAddress,omitempty"`
	PartyTaxSchemes     []partyTaxScheme `xml:"PartyTaxScheme"`
}

type identifier struct {
	ID string `xml:"ID"`
}

type partyName struct {
	Name string `xml:"Name"`
}

type postalAddress struct {
	StreetName string  `xml:"StreetName,omitempty"`
	CityName   string  `xml:"CityName,omitempty"`
	Country    country `xml:"Country"`
}

type country struct {
	IdentificationCode string `xml:"IdentificationCode"`
	Name               string `xml:"Name"`
}

type partyTaxScheme struct {
	CompanyID string `xml:"CompanyID"`
	TaxScheme string `xml:"TaxScheme"`
}

type delivery struct {
	DeliveryParty deliveryParty `xml:"DeliveryParty"`
}

type deliveryParty struct {
	PartyName partyName `xml:"PartyName"`
}

type paymentMeans struct {
	Payment               payment           `xml:"Payment"`
	PayeeFinancialAccount *financialAccount `xml:"PayeeFinancialAccount,omitempty"`
	VariableSymbol        string            `xml:"VariableSymbol,omitempty"`
	ConstantSymbol        string            `xml:"ConstantSymbol,omitempty"`
}

type payment struct {
	PaidAmount     string `xml:"PaidAmount"`
	PaymentDueDate string `xml:"PaymentDueDate,omitempty"`
}

type financialAccount struct {
	ID                         string      `xml:"ID"`
	Name                       string      `xml:"Name,omitempty"`
	FinancialInstitutionBranch *identifier `xml:"FinancialInstitutionBranch,omitempty"`
}

type taxTotal struct {
	TaxAmount   string      `xml:"TaxAmount"`
	TaxSubTotal taxSubTotal `xml:"TaxSubTotal"`
}

type taxSubTotal struct {
	TaxableAmount string      `xml:"TaxableAmount"`
	TaxAmount     string      `xml:"TaxAmount"`
	TaxCategory   taxCategory `xml:"TaxCategory"`
}

type taxCategory struct {
	Percent              string `xml:"Percent"`
	VATCalculationMethod string `xml:"VATCalculationMethod"`
}

type monetaryTotal struct {
	TaxExclusiveAmount               string `xml:"TaxExclusiveAmount"`
	TaxInclusiveAmount               string `xml:"TaxInclusiveAmount"`
	AlreadyClaimedTaxExclusiveAmount string `xml:"AlreadyClaimedTaxExclusiveAmount"`
	AlreadyClaimedTaxInclusiveAmount string `xml:"AlreadyClaimedTaxInclusiveAmount"`
	DifferenceTaxExclusiveAmount     string `xml:"DifferenceTaxExclusiveAmount"`
	DifferenceTaxInclusiveAmount     string `xml:"DifferenceTaxInclusiveAmount"`
	PayableAmount                    string `xml:"PayableAmount"`
}

type invoiceLine struct {
	ID                              string      `xml:"ID"`
	InvoicedQuantity                quantity    `xml:"InvoicedQuantity"`
	LineExtensionAmount             string      `xml:"LineExtensionAmount"`
	LineExtensionAmountTaxInclusive string      `xml:"LineExtensionAmountTaxInclusive"`
	UnitPrice                       string      `xml:"UnitPrice"`
	UnitPriceTaxInclusive           string      `xml:"UnitPriceTaxInclusive"`
	ClassifiedTaxCategory           taxCategory `xml:"ClassifiedTaxCategory"`
	Item                            item        `xml:"Item"`
}

type quantity struct {
	Value    string `xml:",chardata"`
	UnitCode string `xml:"unitCode,attr,omitempty"`
}

type item struct {
	Description                string      `xml:"Description"`
	SellersItemIdentification  *identifier `xml:"SellersItemIdentification,omitempty"`
	StandardItemIdentification *identifier `xml:"StandardItemIdentification,omitempty"`
}
