package notification

import (
	"context"

	"github.com/isnex/invoice-loader/internal/application/port"
	"go.uber.org/zap"
)

// LogNotifier writes alerts to the log. Used when Lark is not configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyFailure(_ context.Context, alert port.FailureAlert) error {
	n.logger.Warn("Invoice processing failed",
		zap.String("tenant", alert.Tenant),
		zap.String("filename", alert.Filename),
		zap.String("kind", alert.Kind),
		zap.String("message", alert.Message))
	return nil
}

func (n *LogNotifier) NotifyValidationFailed(_ context.Context, alert port.ValidationAlert) error {
	n.logger.Warn("Invoice stored with missing data",
		zap.String("tenant", alert.Tenant),
		zap.String("filename", alert.Filename),
		zap.Int64("invoice_id", alert.InvoiceID),
		zap.Strings("missing", alert.Missing),
		zap.Strings("warnings", alert.Warnings))
	return nil
}

func (n *LogNotifier) NotifyDailySummary(_ context.Context, s port.DailySummary) error {
	n.logger.Info("Daily summary",
		zap.String("tenant", s.Tenant),
		zap.Time("day", s.Day),
		zap.Int("processed", s.Processed),
		zap.Int("partial", s.Partial),
		zap.Int("sync_pending", s.SyncPending),
		zap.Int("sync_errors", s.SyncErrors),
		zap.String("total_amount", s.TotalAmount),
		zap.String("workbook", s.WorkbookPath))
	return nil
}

var _ port.Notifier = (*LogNotifier)(nil)
