package port

import (
	"context"
	"time"
)

// TextExtractor turns a received document into plain text
type TextExtractor interface {
	ReadText(ctx context.Context, filename string, content []byte) (string, error)
}

// FailureAlert describes a submission that could not be processed
type FailureAlert struct {
	Tenant      string
	Filename    string
	Fingerprint string
	Kind        string
	Message     string
	OccurredAt  time.Time
}

// ValidationAlert describes a submission stored with missing fields
type ValidationAlert struct {
	Tenant        string
	Filename      string
	InvoiceNumber string
	InvoiceID     int64
	Missing       []string
	Warnings      []string
}

// DailySummary is the per-tenant digest sent once a day
type DailySummary struct {
	Tenant       string
	Day          time.Time
	Processed    int
	Partial      int
	SyncPending  int
	SyncErrors   int
	TotalAmount  string
	WorkbookPath string
}

// Notifier delivers operator alerts. Implementations must be safe for
// concurrent use; callers only log returned errors.
type Notifier interface {
	NotifyFailure(ctx context.Context, alert FailureAlert) error
	NotifyValidationFailed(ctx context.Context, alert ValidationAlert) error
	NotifyDailySummary(ctx context.Context, summary DailySummary) error
}

// MetricsSink records pipeline measurements
type MetricsSink interface {
	ObserveOutcome(outcome string, duration time.Duration)
	ObserveStage(stage string, duration time.Duration)
	IncError(kind string)
	IncWarning(kind string)
	IncSecondaryDeferred(reason string)
	ObserveItems(count int)
}
