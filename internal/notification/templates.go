package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/isnex/invoice-loader/internal/application/port"
)

const timeLayout = "2006-01-02 15:04:05"

// FailureText renders the alert sent when a submission fails
func FailureText(a port.FailureAlert) string {
	var b strings.Builder
	b.WriteString("Invoice processing failed\n\n")
	fmt.Fprintf(&b, "Customer: %s\n", a.Tenant)
	fmt.Fprintf(&b, "Error type: %s\n", a.Kind)
	fmt.Fprintf(&b, "Time: %s\n", formatTime(a.OccurredAt))
	if a.Filename != "" {
		fmt.Fprintf(&b, "File: %s\n", a.Filename)
	}
	if a.Fingerprint != "" {
		fmt.Fprintf(&b, "Fingerprint: %s\n", shortHash(a.Fingerprint))
	}
	fmt.Fprintf(&b, "\n%s", a.Message)
	return b.String()
}

// ValidationText renders the alert sent when an invoice is stored incomplete
func ValidationText(a port.ValidationAlert) string {
	var b strings.Builder
	b.WriteString("Invoice stored with missing data\n\n")
	fmt.Fprintf(&b, "Customer: %s\n", a.Tenant)
	fmt.Fprintf(&b, "File: %s\n", a.Filename)
	if a.InvoiceNumber != "" {
		fmt.Fprintf(&b, "Invoice number: %s\n", a.InvoiceNumber)
	}
	if a.InvoiceID != 0 {
		fmt.Fprintf(&b, "Record ID: %d\n", a.InvoiceID)
	}
	if len(a.Missing) > 0 {
		fmt.Fprintf(&b, "Missing: %s\n", strings.Join(a.Missing, ", "))
	}
	for _, w := range a.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}
	return strings.TrimRight(b.String(), "\n")
}

// SummaryText renders the daily digest
func SummaryText(s port.DailySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily invoice summary %s\n\n", s.Day.Format("2006-01-02"))
	fmt.Fprintf(&b, "Customer: %s\n", s.Tenant)
	fmt.Fprintf(&b, "Processed: %d\n", s.Processed)
	fmt.Fprintf(&b, "Incomplete: %d\n", s.Partial)
	fmt.Fprintf(&b, "Waiting for sync: %d\n", s.SyncPending)
	fmt.Fprintf(&b, "Sync errors: %d\n", s.SyncErrors)
	fmt.Fprintf(&b, "Total amount: %s", s.TotalAmount)
	if s.WorkbookPath != "" {
		fmt.Fprintf(&b, "\nReport: %s", s.WorkbookPath)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format(timeLayout)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
