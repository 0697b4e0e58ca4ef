package service

import (
	"fmt"

	"github.com/isnex/invoice-loader/internal/domain/entity"
	"github.com/isnex/invoice-loader/pkg/utils"
	"github.com/shopspring/decimal"
)

// totalsMismatch compares the summed line totals with the header total.
// It reports nothing when either side is unknown.
func totalsMismatch(data *entity.InvoiceData, tolerance decimal.Decimal) (string, bool) {
	items := data.ItemsTotal()
	if !items.Valid || !data.TotalAmount.Valid {
		return "", false
	}
	if items.Decimal.Sub(data.TotalAmount.Decimal).Abs().LessThanOrEqual(tolerance) {
		return "", false
	}
	return fmt.Sprintf("line totals %s differ from invoice total %s",
		items.Decimal.StringFixed(2), data.TotalAmount.Decimal.StringFixed(2)), true
}

// identifierProblems checks the identifiers that were extracted.
// Absent identifiers are reported by MissingRequired instead.
func identifierProblems(data *entity.InvoiceData) []string {
	var problems []string
	check := func(value string, validate func(string) error) {
		if value == "" {
			return
		}
		if err := validate(value); err != nil {
			problems = append(problems, err.Error())
		}
	}

	check(data.Supplier.ICO, utils.ValidateICO)
	check(data.Supplier.DIC, utils.ValidateDIC)
	check(data.Supplier.ICDPH, utils.ValidateVATID)
	check(data.Customer.ICO, utils.ValidateICO)
	check(data.Bank.IBAN, utils.ValidateIBAN)
	return problems
}
