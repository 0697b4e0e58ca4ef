package utils

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

var (
	icoRegex   = regexp.MustCompile(`^\d{8}$`)
	dicRegex   = regexp.MustCompile(`^\d{10}$`)
	icDPHRegex = regexp.MustCompile(`^[A-Z]{2}\d{8,10}$`)
	ibanRegex  = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z0-9]{10,30}$`)
)

// ValidateICO validates a Slovak or Czech company registration number
// (8 digits, modulo 11 check digit)
func ValidateICO(ico string) error {
	if !icoRegex.MatchString(ico) {
		return fmt.Errorf("ICO must be 8 digits: %s", ico)
	}

	sum := 0
	for i := 0; i < 7; i++ {
		sum += int(ico[i]-'0') * (8 - i)
	}
	check := (11 - sum%11) % 10
	if int(ico[7]-'0') != check {
		return fmt.Errorf("ICO check digit mismatch: %s", ico)
	}
	return nil
}

// ValidateDIC validates a Slovak tax identification number (10 digits)
func ValidateDIC(dic string) error {
	if !dicRegex.MatchString(dic) {
		return fmt.Errorf("DIC must be 10 digits: %s", dic)
	}
	return nil
}

// ValidateVATID validates the shape of an EU VAT identification number
func ValidateVATID(id string) error {
	if !icDPHRegex.MatchString(id) {
		return fmt.Errorf("invalid VAT ID format: %s", id)
	}
	return nil
}

// ValidateIBAN validates an IBAN with the ISO 13616 mod-97 check.
// Spaces are ignored.
func ValidateIBAN(iban string) error {
	iban = strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
	if !ibanRegex.MatchString(iban) {
		return fmt.Errorf("invalid IBAN format: %s", iban)
	}

	var digits strings.Builder
	for _, r := range iban[4:] + iban[:4] {
		if r >= 'A' && r <= 'Z' {
			fmt.Fprintf(&digits, "%d", r-'A'+10)
			continue
		}
		digits.WriteRune(r)
	}

	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return fmt.Errorf("invalid IBAN: %s", iban)
	}
	if new(big.Int).Mod(n, big.NewInt(97)).Int64() != 1 {
		return fmt.Errorf("IBAN checksum mismatch: %s", iban)
	}
	return nil
}
