// Package report builds the daily summary workbook of stored invoices.
package report

import (
	"fmt"
	"time"

	"github.com/isnex/invoice-loader/internal/domain/entity"
	"github.com/isnex/invoice-loader/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	summarySheet  = "Summary"
	invoicesSheet = "Invoices"
	dateLayout    = "2006-01-02"
	timeLayout    = "2006-01-02 15:04:05"
)

var invoiceColumns = []string{
	"ID", "Invoice number", "Issue date", "Due date", "Supplier", "ICO",
	"Currency", "Net", "VAT", "Total", "Items", "Status", "Sync status", "File", "Received",
}

// Totals aggregates the records of one summary
type Totals struct {
	Processed   int
	Partial     int
	SyncPending int
	SyncErrors  int
	TotalAmount decimal.Decimal
}

// Summarize counts records by status and sums their totals
func Summarize(records []*entity.InvoiceRecord) Totals {
	var t Totals
	for _, r := range records {
		switch r.Status {
		case entity.RecordStatusPartial:
			t.Partial++
		default:
			t.Processed++
		}
		switch r.SyncStatus {
		case entity.SyncStatusPending:
			t.SyncPending++
		case entity.SyncStatusError:
			t.SyncErrors++
		}
		if r.TotalAmount.Valid {
			t.TotalAmount = t.TotalAmount.Add(r.TotalAmount.Decimal)
		}
	}
	return t
}

// WorkbookWriter renders summaries as xlsx files
type WorkbookWriter struct {
	storage storage.FileStorage
	logger  *zap.Logger
}

// NewWorkbookWriter creates a writer that stores workbooks through fs
func NewWorkbookWriter(fs storage.FileStorage, logger *zap.Logger) *WorkbookWriter {
	return &WorkbookWriter{
		storage: fs,
		logger:  logger,
	}
}

// Write renders the records of a tenant's day to path and returns the totals
func (w *WorkbookWriter) Write(path, tenant string, day time.Time, records []*entity.InvoiceRecord) (Totals, error) {
	totals := Summarize(records)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return totals, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(invoicesSheet); err != nil {
		return totals, fmt.Errorf("failed to create sheet: %w", err)
	}

	rows := [][]any{
		{"Customer", tenant},
		{"Day", day.Format(dateLayout)},
		{"Processed", totals.Processed},
		{"Incomplete", totals.Partial},
		{"Waiting for sync", totals.SyncPending},
		{"Sync errors", totals.SyncErrors},
		{"Total amount", totals.TotalAmount.StringFixed(2)},
	}
	for i, row := range rows {
		if err := w.setRow(f, summarySheet, i+1, row); err != nil {
			return totals, err
		}
	}

	header := make([]any, len(invoiceColumns))
	for i, c := range invoiceColumns {
		header[i] = c
	}
	if err := w.setRow(f, invoicesSheet, 1, header); err != nil {
		return totals, err
	}
	for i, r := range records {
		if err := w.setRow(f, invoicesSheet, i+2, invoiceRow(r)); err != nil {
			return totals, err
		}
	}
	if err := f.SetPanes(invoicesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		w.logger.Warn("Failed to freeze header row", zap.Error(err))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return totals, fmt.Errorf("failed to render workbook: %w", err)
	}
	if err := w.storage.SaveFileWithType(path, buf.Bytes(), storage.FileTypeWorkbook); err != nil {
		return totals, err
	}

	w.logger.Info("Summary workbook written",
		zap.String("tenant", tenant),
		zap.String("path", path),
		zap.Int("invoices", len(records)))
	return totals, nil
}

func (w *WorkbookWriter) setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func invoiceRow(r *entity.InvoiceRecord) []any {
	received := ""
	if r.ReceivedDate != nil {
		received = r.ReceivedDate.UTC().Format(timeLayout)
	}
	return []any{
		r.ID,
		r.InvoiceNumber,
		r.IssueDate,
		r.DueDate,
		r.SupplierName,
		r.SupplierICO,
		r.Currency,
		amount(r.NetAmount),
		amount(r.TaxAmount),
		amount(r.TotalAmount),
		r.ItemCount,
		r.Status,
		r.SyncStatus,
		r.OriginalFilename,
		received,
	}
}

// amount renders a decimal as a number cell, or blank when unknown
func amount(d decimal.NullDecimal) any {
	if !d.Valid {
		return ""
	}
	v, _ := d.Decimal.Float64()
	return v
}
