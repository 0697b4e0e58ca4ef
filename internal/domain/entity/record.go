package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/shopspring/decimal"
)

// Submission is one inbound document with its mail metadata
type Submission struct {
	Content    []byte
	Filename   string
	MessageID  string
	GmailID    string
	Sender     string
	Subject    string
	ReceivedAt time.Time
	Tenant     string // empty means the configured tenant
}

// Fingerprint returns the hex SHA-256 of the raw document bytes
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// InvoiceRecord is the primary store row: header fields plus bookkeeping
type InvoiceRecord struct {
	ID               int64               `json:"id"`
	Tenant           string              `json:"customer_name"`
	MessageID        string              `json:"message_id,omitempty"`
	GmailID          string              `json:"gmail_id,omitempty"`
	Sender           string              `json:"sender,omitempty"`
	Subject          string              `json:"subject,omitempty"`
	ReceivedDate     *time.Time          `json:"received_date,omitempty"`
	FileHash         string              `json:"file_hash"`
	OriginalFilename string              `json:"original_filename"`
	PDFPath          string              `json:"pdf_path"`
	XMLPath          string              `json:"xml_path,omitempty"`
	Status           string              `json:"status"`
	InvoiceNumber    string              `json:"invoice_number,omitempty"`
	IssueDate        string              `json:"issue_date,omitempty"`
	DueDate          string              `json:"due_date,omitempty"`
	SupplierICO      string              `json:"supplier_ico,omitempty"`
	SupplierName     string              `json:"supplier_name,omitempty"`
	Currency         string              `json:"currency,omitempty"`
	TotalAmount      decimal.NullDecimal `json:"total_amount"`
	TaxAmount        decimal.NullDecimal `json:"tax_amount"`
	NetAmount        decimal.NullDecimal `json:"net_amount"`
	VariableSymbol   string              `json:"variable_symbol,omitempty"`
	ItemCount        int                 `json:"item_count"`
	SyncID           *int64              `json:"nex_genesis_id,omitempty"`
	SyncStatus       string              `json:"nex_status"`
	SyncDate         *time.Time          `json:"nex_sync_date,omitempty"`
	SyncError        string              `json:"nex_error_message,omitempty"`
	MigrationVersion string              `json:"migration_version"`
	CreatedAt        time.Time           `json:"created_at"`
	ProcessedAt      *time.Time          `json:"processed_at,omitempty"`
}

// NewInvoiceRecord builds the primary row for a submission and its extraction
func NewInvoiceRecord(tenant, fileHash string, sub Submission, data *InvoiceData) *InvoiceRecord {
	rec := &InvoiceRecord{
		Tenant:           tenant,
		MessageID:        sub.MessageID,
		GmailID:          sub.GmailID,
		Sender:           sub.Sender,
		Subject:          sub.Subject,
		FileHash:         fileHash,
		OriginalFilename: sub.Filename,
		Status:           RecordStatusReceived,
		SyncStatus:       SyncStatusPending,
		MigrationVersion: SchemaVersion,
	}
	if !sub.ReceivedAt.IsZero() {
		received := sub.ReceivedAt
		rec.ReceivedDate = &received
	}
	if data != nil {
		rec.InvoiceNumber = data.InvoiceNumber
		rec.IssueDate = data.IssueDate.ISO()
		rec.DueDate = data.DueDate.ISO()
		rec.SupplierICO = data.Supplier.ICO
		rec.SupplierName = data.Supplier.Name
		rec.Currency = data.Currency
		rec.TotalAmount = data.TotalAmount
		rec.TaxAmount = data.TaxAmount
		rec.NetAmount = data.NetAmount
		rec.VariableSymbol = data.Bank.VariableSymbol
		rec.ItemCount = len(data.Items)
	}
	return rec
}

// SyncUpdate reports the downstream accounting system outcome for a record
type SyncUpdate struct {
	SyncID       *int64
	Status       string
	ErrorMessage string
}

// Stats aggregates primary store contents for reporting
type Stats struct {
	Total        int             `json:"total"`
	ByStatus     map[string]int  `json:"by_status"`
	BySyncStatus map[string]int  `json:"by_nex_status"`
	ByTenant     map[string]int  `json:"by_customer"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}
