package invoice

import (
	"strings"
	"unicode/utf8"

	"github.com/isnex/invoice-loader/internal/domain/entity"
)

// MinTrustedNameLength is the shortest extracted name kept over a fallback
const MinTrustedNameLength = 10

// rejectedNameMarkers flag captures that picked up technical text instead of a name
var rejectedNameMarkers = []string{"OBJ:"}

// IdentityFallback supplies a known value for Field. When KeyField is set the
// entry applies only to documents whose KeyField equals Key.
//
// An extracted value wins unless it is empty, shorter than
// MinTrustedNameLength or contains a rejected marker.
type IdentityFallback struct {
	Field    Field
	KeyField Field
	Key      string
	Value    string
}

func (f IdentityFallback) appliesTo(data *entity.InvoiceData) bool {
	if f.KeyField == "" {
		return true
	}
	key := stringField(data, f.KeyField)
	return key != nil && *key == f.Key
}

// trustExtracted reports whether an extracted name beats a fallback
func trustExtracted(value string) bool {
	if utf8.RuneCountInString(strings.TrimSpace(value)) < MinTrustedNameLength {
		return false
	}
	for _, marker := range rejectedNameMarkers {
		if strings.Contains(value, marker) {
			return false
		}
	}
	return true
}

// applyFallbacks resolves the fallback table against extracted values and
// returns the fields that were replaced
func applyFallbacks(data *entity.InvoiceData, fallbacks []IdentityFallback) []Field {
	var applied []Field
	for _, fb := range fallbacks {
		target := stringField(data, fb.Field)
		if target == nil || !fb.appliesTo(data) {
			continue
		}
		if trustExtracted(*target) {
			continue
		}
		*target = fb.Value
		applied = append(applied, fb.Field)
	}
	return applied
}

// stringField returns the textual field of data named by f, or nil for
// fields that are not plain strings
func stringField(data *entity.InvoiceData, f Field) *string {
	switch f {
	case FieldInvoiceNumber:
		return &data.InvoiceNumber
	case FieldCurrency:
		return &data.Currency
	case FieldSupplierName:
		return &data.Supplier.Name
	case FieldSupplierICO:
		return &data.Supplier.ICO
	case FieldSupplierDIC:
		return &data.Supplier.DIC
	case FieldSupplierICDPH:
		return &data.Supplier.ICDPH
	case FieldCustomerName:
		return &data.Customer.Name
	case FieldCustomerICO:
		return &data.Customer.ICO
	case FieldCustomerDIC:
		return &data.Customer.DIC
	case FieldCustomerICDPH:
		return &data.Customer.ICDPH
	case FieldIBAN:
		return &data.Bank.IBAN
	case FieldBIC:
		return &data.Bank.BIC
	case FieldVariableSymbol:
		return &data.Bank.VariableSymbol
	case FieldConstantSymbol:
		return &data.Bank.ConstantSymbol
	}
	return nil
}
