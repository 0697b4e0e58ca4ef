package port

import (
	"context"
	"time"

	"github.com/isnex/invoice-loader/internal/domain/entity"
)

// PrimaryStore is the system of record for received invoices.
// Lookups that find nothing return (nil, nil).
type PrimaryStore interface {
	IsDuplicate(ctx context.Context, tenant, fileHash string) (bool, error)
	Create(ctx context.Context, rec *entity.InvoiceRecord) error
	SetArtifacts(ctx context.Context, id int64, pdfPath, xmlPath string) error
	GetByID(ctx context.Context, id int64) (*entity.InvoiceRecord, error)
	GetBySyncID(ctx context.Context, syncID int64) (*entity.InvoiceRecord, error)
	List(ctx context.Context, tenant string, limit int) ([]*entity.InvoiceRecord, error)
	ListCreatedBetween(ctx context.Context, tenant string, from, to time.Time) ([]*entity.InvoiceRecord, error)
	ListPendingSync(ctx context.Context, tenant string, limit int) ([]*entity.InvoiceRecord, error)
	UpdateSyncStatus(ctx context.Context, id int64, update entity.SyncUpdate) (bool, error)
	Stats(ctx context.Context, tenant string) (*entity.Stats, error)
	Tenants(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

// StagingMeta carries bookkeeping stored next to a staged invoice
type StagingMeta struct {
	Tenant     string
	FileHash   string
	PrimaryID  int64
	SourceFile string
}

// SecondaryStore is the staging database read by the invoice editor
type SecondaryStore interface {
	CheckDuplicate(ctx context.Context, supplierICO, invoiceNumber string) (bool, error)
	SaveInvoice(ctx context.Context, data *entity.InvoiceData, isdocXML []byte, meta StagingMeta) (int64, error)
	TestConnection(ctx context.Context) error
}

// ErrorClassifier is implemented by stores that can map their failures to
// a low-cardinality reason for logs and metrics
type ErrorClassifier interface {
	ClassifyError(err error) string
}
