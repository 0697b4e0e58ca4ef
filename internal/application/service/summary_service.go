package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/isnex/invoice-loader/internal/application/port"
	"github.com/isnex/invoice-loader/internal/report"
	"github.com/isnex/invoice-loader/internal/storage"
	"go.uber.org/zap"
)

// SummaryService builds and sends the daily digest of stored invoices
type SummaryService struct {
	primary   port.PrimaryStore
	folders   *storage.FolderManager
	workbooks *report.WorkbookWriter
	notifier  port.Notifier
	logger    *zap.Logger
}

// NewSummaryService creates a new SummaryService
func NewSummaryService(
	primary port.PrimaryStore,
	folders *storage.FolderManager,
	workbooks *report.WorkbookWriter,
	notifier port.Notifier,
	logger *zap.Logger,
) *SummaryService {
	return &SummaryService{
		primary:   primary,
		folders:   folders,
		workbooks: workbooks,
		notifier:  notifier,
		logger:    logger,
	}
}

// DayBounds returns the UTC day containing t as a half-open interval
func DayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	from := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 0, 1)
}

// Send builds the workbook of one tenant's day and sends the digest.
// A failed notification is returned after the workbook is written.
func (s *SummaryService) Send(ctx context.Context, tenant string, day time.Time) (*port.DailySummary, error) {
	from, to := DayBounds(day)

	records, err := s.primary.ListCreatedBetween(ctx, tenant, from, to)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	if err := s.folders.EnsureTenantFolders(tenant); err != nil {
		return nil, err
	}
	path := s.folders.ReportPath(tenant, from)
	totals, err := s.workbooks.Write(path, tenant, from, records)
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	summary := &port.DailySummary{
		Tenant:       tenant,
		Day:          from,
		Processed:    totals.Processed,
		Partial:      totals.Partial,
		SyncPending:  totals.SyncPending,
		SyncErrors:   totals.SyncErrors,
		TotalAmount:  totals.TotalAmount.StringFixed(2),
		WorkbookPath: path,
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyDailySummary(ctx, *summary); err != nil {
			return summary, fmt.Errorf("send summary: %w", err)
		}
	}

	s.logger.Info("Daily summary sent",
		zap.String("tenant", tenant),
		zap.String("day", from.Format("2006-01-02")),
		zap.Int("invoices", len(records)))
	return summary, nil
}

// SendAll sends the digest of every known tenant. Failures of one tenant do
// not stop the others.
func (s *SummaryService) SendAll(ctx context.Context, day time.Time) ([]*port.DailySummary, error) {
	tenants, err := s.primary.Tenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	var (
		summaries []*port.DailySummary
		errs      []error
	)
	for _, tenant := range tenants {
		summary, err := s.Send(ctx, tenant, day)
		if summary != nil {
			summaries = append(summaries, summary)
		}
		if err != nil {
			s.logger.Error("Daily summary failed", zap.String("tenant", tenant), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", tenant, err))
		}
	}
	return summaries, errors.Join(errs...)
}
