// Package invoicetest holds invoice text fixtures shared by tests across
// packages.
package invoicetest

import (
	_ "embed"
	"os"
	"path/filepath"
	"testing"
)

// LSInvoice is the text layer of a two-page invoice from the default supplier.
//
//go:embed ls_invoice.txt
var LSInvoice string

// WriteLSInvoice writes LSInvoice into a temp dir and returns its path.
func WriteLSInvoice(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ls_invoice.txt")
	if err := os.WriteFile(path, []byte(LSInvoice), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}
