package utils

import (
	"testing"
)

func TestValidateICO(t *testing.T) {
	tests := []struct {
		name    string
		ico     string
		wantErr bool
	}{
		{"valid", "36555720", false},
		{"bad check digit", "36555721", true},
		{"too short", "3655572", true},
		{"letters", "3655572A", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateICO(tt.ico)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateICO(%q) error = %v, wantErr %v", tt.ico, err, tt.wantErr)
			}
		})
	}
}

func TestValidateIBAN(t *testing.T) {
	tests := []struct {
		name    string
		iban    string
		wantErr bool
	}{
		{"valid", "SK3112000000198742637541", false},
		{"valid with spaces", "sk31 1200 0000 1987 4263 7541", false},
		{"bad checksum", "SK3112000000198742637542", true},
		{"garbage", "not an iban", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIBAN(tt.iban)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIBAN(%q) error = %v, wantErr %v", tt.iban, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDICAndVATID(t *testing.T) {
	if err := ValidateDIC("2022171130"); err != nil {
		t.Errorf("ValidateDIC() unexpected error: %v", err)
	}
	if err := ValidateDIC("202217113"); err == nil {
		t.Error("ValidateDIC() expected error for 9 digits")
	}
	if err := ValidateVATID("SK2022171130"); err != nil {
		t.Errorf("ValidateVATID() unexpected error: %v", err)
	}
	if err := ValidateVATID("2022171130"); err == nil {
		t.Error("ValidateVATID() expected error without country prefix")
	}
}
