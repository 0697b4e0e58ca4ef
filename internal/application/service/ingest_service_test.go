package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/isnex/invoice-loader/internal/application/port"
	"github.com/isnex/invoice-loader/internal/domain/entity"
	"github.com/isnex/invoice-loader/internal/domain/workflow"
	"github.com/isnex/invoice-loader/internal/infrastructure/persistence/repository"
	"github.com/isnex/invoice-loader/internal/invoice"
	"github.com/isnex/invoice-loader/internal/invoice/invoicetest"
	"github.com/isnex/invoice-loader/internal/isdoc"
	"github.com/isnex/invoice-loader/internal/observability/metrics"
	"github.com/isnex/invoice-loader/internal/staging"
	"github.com/isnex/invoice-loader/internal/storage"
	"github.com/isnex/invoice-loader/pkg/database"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testTenant = "MAGERSTAV"

// MockSecondaryStore is a mock implementation of port.SecondaryStore
type MockSecondaryStore struct {
	mock.Mock
}

func (m *MockSecondaryStore) CheckDuplicate(ctx context.Context, supplierICO, invoiceNumber string) (bool, error) {
	args := m.Called(ctx, supplierICO, invoiceNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockSecondaryStore) SaveInvoice(ctx context.Context, data *entity.InvoiceData, isdocXML []byte, meta port.StagingMeta) (int64, error) {
	args := m.Called(ctx, data, isdocXML, meta)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSecondaryStore) TestConnection(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockNotifier is a mock implementation of port.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyFailure(ctx context.Context, alert port.FailureAlert) error {
	return m.Called(ctx, alert).Error(0)
}

func (m *MockNotifier) NotifyValidationFailed(ctx context.Context, alert port.ValidationAlert) error {
	return m.Called(ctx, alert).Error(0)
}

func (m *MockNotifier) NotifyDailySummary(ctx context.Context, summary port.DailySummary) error {
	return m.Called(ctx, summary).Error(0)
}

func newMockNotifier() *MockNotifier {
	n := &MockNotifier{}
	n.On("NotifyFailure", mock.Anything, mock.Anything).Return(nil).Maybe()
	n.On("NotifyValidationFailed", mock.Anything, mock.Anything).Return(nil).Maybe()
	n.On("NotifyDailySummary", mock.Anything, mock.Anything).Return(nil).Maybe()
	return n
}

// countingReader wraps a reader and counts calls
type countingReader struct {
	port.TextExtractor
	mu    sync.Mutex
	calls int
}

func (r *countingReader) ReadText(ctx context.Context, filename string, content []byte) (string, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return r.TextExtractor.ReadText(ctx, filename, content)
}

type readerFunc func(ctx context.Context, filename string, content []byte) (string, error)

func (f readerFunc) ReadText(ctx context.Context, filename string, content []byte) (string, error) {
	return f(ctx, filename, content)
}

// primaryStub overrides Create of a real store
type primaryStub struct {
	port.PrimaryStore
	create func(ctx context.Context, rec *entity.InvoiceRecord) error
}

func (p *primaryStub) Create(ctx context.Context, rec *entity.InvoiceRecord) error {
	return p.create(ctx, rec)
}

type harness struct {
	svc      *IngestService
	repo     *repository.InvoiceRepository
	notifier *MockNotifier
	registry *prometheus.Registry
	baseDir  string
	reader   *countingReader
}

func newHarness(t *testing.T, secondary port.SecondaryStore) *harness {
	return newHarnessWith(t, secondary, nil)
}

func newHarnessWith(t *testing.T, secondary port.SecondaryStore, override func(*Dependencies)) *harness {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "invoices.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).Migrate(context.Background()))
	repo := repository.NewInvoiceRepository(db, logger)

	registry := prometheus.NewRegistry()
	sink, err := metrics.New(registry, metrics.Config{Namespace: "test"})
	require.NoError(t, err)

	baseDir := t.TempDir()
	reader := &countingReader{TextExtractor: invoice.NewTextReader(0, logger)}
	notifier := newMockNotifier()

	deps := Dependencies{
		Reader:    reader,
		Extractor: invoice.NewExtractor(invoice.DefaultRegistry(), logger),
		Encoder:   isdoc.NewEncoder(isdoc.DefaultConfig(), logger),
		Primary:   repo,
		Folders:   storage.NewFolderManager(baseDir, logger),
		Files:     storage.NewLocalFileStorage(baseDir, logger),
		Notifier:  notifier,
		Metrics:   sink,
	}
	if secondary != nil {
		deps.Secondary = secondary
	}
	if override != nil {
		override(&deps)
	}

	svc := NewIngestService(Config{
		Tenant:           testTenant,
		TotalTolerance:   decimal.RequireFromString("0.05"),
		PrimaryTimeout:   5 * time.Second,
		SecondaryTimeout: 2 * time.Second,
	}, deps, logger)

	return &harness{
		svc:      svc,
		repo:     repo,
		notifier: notifier,
		registry: registry,
		baseDir:  baseDir,
		reader:   reader,
	}
}

func fixture(t *testing.T) string {
	t.Helper()
	return invoicetest.LSInvoice
}

func submission(text string) entity.Submission {
	return entity.Submission{
		Content:    []byte(text),
		Filename:   "invoice.txt",
		MessageID:  "<msg@example.com>",
		Sender:     "billing@ls.sk",
		ReceivedAt: time.Date(2025, 9, 16, 8, 30, 0, 0, time.UTC),
	}
}

func countRecords(t *testing.T, repo *repository.InvoiceRepository) int {
	t.Helper()
	stats, err := repo.Stats(context.Background(), testTenant)
	require.NoError(t, err)
	return stats.Total
}

func TestIngestService_Process_Success(t *testing.T) {
	secondary := &MockSecondaryStore{}
	secondary.On("CheckDuplicate", mock.Anything, "36555720", "20250123").Return(false, nil)
	secondary.On("SaveInvoice", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(m port.StagingMeta) bool {
		return m.Tenant == testTenant && m.PrimaryID > 0 && m.SourceFile == "invoice.txt"
	})).Return(int64(77), nil)

	h := newHarness(t, secondary)
	res := h.svc.Process(context.Background(), submission(fixture(t)))

	require.NotNil(t, res)
	assert.Equal(t, OutcomeSuccess, res.Outcome, res.Message)
	assert.True(t, res.Success)
	assert.False(t, res.Duplicate)
	assert.Equal(t, workflow.StateDone, res.State)
	assert.True(t, res.PrimarySaved)
	assert.True(t, res.SecondarySaved)
	assert.Equal(t, int64(77), res.StagingID)
	assert.Equal(t, "20250123", res.InvoiceNumber)
	assert.Equal(t, 2, res.ItemCount)
	assert.Empty(t, res.Missing)
	assert.Empty(t, res.Warnings)
	assert.NoError(t, res.Err)
	secondary.AssertExpectations(t)

	assert.True(t, res.ArtifactsSaved)
	assert.FileExists(t, res.PDFPath)
	assert.Equal(t, filepath.Join(h.baseDir, testTenant, storage.XMLFolder, "20250123.xml"), res.XMLPath)
	xml, err := os.ReadFile(res.XMLPath)
	require.NoError(t, err)
	assert.Contains(t, string(xml), "<ID>20250123</ID>")

	rec, err := h.repo.GetByID(context.Background(), res.InvoiceID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, entity.RecordStatusProcessed, rec.Status)
	assert.Equal(t, res.PDFPath, rec.PDFPath)
	assert.Equal(t, res.XMLPath, rec.XMLPath)
	assert.Equal(t, "36.65", rec.TotalAmount.Decimal.StringFixed(2))

	h.notifier.AssertNotCalled(t, "NotifyFailure", mock.Anything, mock.Anything)
	h.notifier.AssertNotCalled(t, "NotifyValidationFailed", mock.Anything, mock.Anything)
}

func TestIngestService_Process_DuplicateResubmission(t *testing.T) {
	h := newHarness(t, nil)
	sub := submission(fixture(t))

	first := h.svc.Process(context.Background(), sub)
	require.Equal(t, OutcomeSuccess, first.Outcome, first.Message)

	second := h.svc.Process(context.Background(), sub)
	assert.Equal(t, OutcomeDuplicate, second.Outcome)
	assert.True(t, second.Duplicate)
	assert.False(t, second.Success)
	assert.Equal(t, workflow.StateDuplicate, second.State)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)

	assert.Equal(t, 1, h.reader.calls, "duplicates skip extraction")
	assert.Equal(t, 1, countRecords(t, h.repo))

	// the same bytes are new for another tenant
	sub.Tenant = "OTHER"
	third := h.svc.Process(context.Background(), sub)
	assert.Equal(t, OutcomeSuccess, third.Outcome)
}

func TestIngestService_Process_SecondaryUnreachable(t *testing.T) {
	unreachable := staging.New(staging.Config{
		Host:           "127.0.0.1",
		Port:           1,
		Database:       "none",
		User:           "none",
		ConnectTimeout: 200 * time.Millisecond,
	}, zap.NewNop())
	t.Cleanup(unreachable.Close)

	h := newHarness(t, unreachable)
	res := h.svc.Process(context.Background(), submission(fixture(t)))

	assert.True(t, res.Success)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.True(t, res.PrimarySaved)
	assert.False(t, res.SecondarySaved)
	assert.NotEmpty(t, res.SecondaryError)
	assert.Equal(t, workflow.StateDone, res.State)
	assert.True(t, errors.Is(res.Err, ErrSecondaryStore))
	assert.Equal(t, 1, countRecords(t, h.repo))

	expected := `
# HELP test_secondary_deferred_total Staging writes deferred after the primary commit, by reason.
# TYPE test_secondary_deferred_total counter
test_secondary_deferred_total{reason="unreachable",service="invoice-loader"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(h.registry, strings.NewReader(expected), "test_secondary_deferred_total"))
}

func TestIngestService_Process_SecondaryDuplicate(t *testing.T) {
	secondary := &MockSecondaryStore{}
	secondary.On("CheckDuplicate", mock.Anything, "36555720", "20250123").Return(true, nil)

	h := newHarness(t, secondary)
	res := h.svc.Process(context.Background(), submission(fixture(t)))

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.False(t, res.SecondarySaved)
	assert.Contains(t, res.SecondaryError, "already staged")
	secondary.AssertNotCalled(t, "SaveInvoice", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestService_Process_StagingDisabled(t *testing.T) {
	h := newHarness(t, nil)
	res := h.svc.Process(context.Background(), submission(fixture(t)))

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.False(t, res.SecondarySaved)
	assert.NoError(t, res.Err)
	assert.Equal(t, workflow.StateDone, res.State)
}

func TestIngestService_Process_EmptyTable(t *testing.T) {
	text := `L & Š, s.r.o.
IČO: 36555720
FAKTÚRA - DAŇOVÝ DOKLAD č. 20250124
Dátum vystavenia: 16.09.2025
Celkom k úhrade 10.00 EUR
`
	h := newHarness(t, nil)
	res := h.svc.Process(context.Background(), submission(text))

	assert.Equal(t, OutcomePartial, res.Outcome)
	assert.True(t, res.Success)
	assert.Equal(t, []string{entity.RequiredItems}, res.Missing)
	assert.True(t, errors.Is(res.Err, ErrExtractionIncomplete))
	assert.Equal(t, "20250124", res.InvoiceNumber)
	assert.Zero(t, res.ItemCount)
	assert.NotEmpty(t, res.XMLPath, "header data is still encoded")

	rec, err := h.repo.GetByID(context.Background(), res.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, entity.RecordStatusPartial, rec.Status)
	assert.Equal(t, "2025-09-16", rec.IssueDate)

	h.notifier.AssertCalled(t, "NotifyValidationFailed", mock.Anything, mock.MatchedBy(func(a port.ValidationAlert) bool {
		return a.InvoiceID == res.InvoiceID && len(a.Missing) == 1
	}))
}

func TestIngestService_Process_EncodingFailureStillCommits(t *testing.T) {
	secondary := &MockSecondaryStore{}
	h := newHarness(t, secondary)

	res := h.svc.Process(context.Background(), submission("Dodací list\nCelkom k úhrade 10.00 EUR\n"))

	assert.Equal(t, OutcomePartial, res.Outcome)
	assert.True(t, res.PrimarySaved)
	assert.Contains(t, res.Missing, entity.RequiredInvoiceNumber)
	assert.Empty(t, res.XMLPath)
	assert.NotEmpty(t, res.PDFPath)
	assert.False(t, res.SecondarySaved)
	assert.Equal(t, []workflow.State{
		workflow.StateReceived,
		workflow.StateExtracted,
		workflow.StatePrimaryCommitted,
		workflow.StateSecondaryDeferred,
		workflow.StateDone,
	}, res.Path)

	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "missing document identifier") {
			found = true
		}
	}
	assert.True(t, found, "warnings: %v", res.Warnings)
	secondary.AssertNotCalled(t, "CheckDuplicate", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1, countRecords(t, h.repo))
}

func TestIngestService_Process_TotalsMismatchWarns(t *testing.T) {
	text := strings.Replace(fixture(t), "Celkom k úhrade 36.65 EUR", "Celkom k úhrade 40.00 EUR", 1)
	h := newHarness(t, nil)

	res := h.svc.Process(context.Background(), submission(text))

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "36.65")
	assert.Contains(t, res.Warnings[0], "40.00")
}

func TestIngestService_Process_ReadFailure(t *testing.T) {
	h := newHarnessWith(t, nil, func(d *Dependencies) {
		d.Reader = readerFunc(func(context.Context, string, []byte) (string, error) {
			return "", invoice.ErrNoText
		})
	})

	res := h.svc.Process(context.Background(), submission("%PDF-1.4 scanned"))

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.False(t, res.Success)
	assert.Equal(t, KindExtraction, res.ErrorKind)
	assert.Equal(t, workflow.StateFailed, res.State)
	assert.True(t, errors.Is(res.Err, invoice.ErrNoText))
	assert.Zero(t, countRecords(t, h.repo))

	h.notifier.AssertCalled(t, "NotifyFailure", mock.Anything, mock.MatchedBy(func(a port.FailureAlert) bool {
		return a.Kind == KindExtraction && a.Tenant == testTenant
	}))
}

func TestIngestService_Process_EmptyDocument(t *testing.T) {
	h := newHarness(t, nil)
	res := h.svc.Process(context.Background(), entity.Submission{Filename: "empty.pdf"})

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, KindInvalidInput, res.ErrorKind)
	assert.True(t, errors.Is(res.Err, ErrEmptyDocument))
}

func TestIngestService_Process_PrimaryFailure(t *testing.T) {
	secondary := &MockSecondaryStore{}
	h := newHarnessWith(t, secondary, func(d *Dependencies) {
		d.Primary = &primaryStub{
			PrimaryStore: d.Primary,
			create: func(context.Context, *entity.InvoiceRecord) error {
				return errors.New("disk I/O error")
			},
		}
	})

	res := h.svc.Process(context.Background(), submission(fixture(t)))

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, KindPrimaryStore, res.ErrorKind)
	assert.True(t, errors.Is(res.Err, ErrPrimaryStore))
	assert.False(t, res.PrimarySaved)
	assert.Empty(t, res.PDFPath, "no artifacts before the primary commit")
	secondary.AssertNotCalled(t, "CheckDuplicate", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestService_Process_LostCommitRaceIsDuplicate(t *testing.T) {
	h := newHarnessWith(t, nil, func(d *Dependencies) {
		d.Primary = &primaryStub{
			PrimaryStore: d.Primary,
			create: func(context.Context, *entity.InvoiceRecord) error {
				return fmt.Errorf("%w: abc", port.ErrDuplicate)
			},
		}
	})

	res := h.svc.Process(context.Background(), submission(fixture(t)))

	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.True(t, res.Duplicate)
	assert.Empty(t, res.ErrorKind)
	assert.Equal(t, workflow.StateDuplicate, res.State)
}

func TestIngestService_Process_CancelAfterPrimaryCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	secondary := &MockSecondaryStore{}
	secondary.On("CheckDuplicate", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), mock.Anything, mock.Anything).
		Return(false, nil)
	secondary.On("SaveInvoice", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), mock.Anything, mock.Anything, mock.Anything).
		Return(int64(5), nil)

	h := newHarnessWith(t, secondary, func(d *Dependencies) {
		store := d.Primary
		d.Primary = &primaryStub{
			PrimaryStore: store,
			create: func(ctx context.Context, rec *entity.InvoiceRecord) error {
				err := store.Create(ctx, rec)
				cancel()
				return err
			},
		}
	})

	res := h.svc.Process(ctx, submission(fixture(t)))

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.True(t, res.SecondarySaved)
	assert.FileExists(t, res.PDFPath)
	secondary.AssertExpectations(t)
	assert.Equal(t, 1, countRecords(t, h.repo))
}

func TestIngestService_Process_PanicIsClassified(t *testing.T) {
	h := newHarnessWith(t, nil, func(d *Dependencies) {
		d.Reader = readerFunc(func(context.Context, string, []byte) (string, error) {
			panic("renderer crashed")
		})
	})

	res := h.svc.Process(context.Background(), submission("x"))

	require.NotNil(t, res)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, KindInternal, res.ErrorKind)
	assert.Contains(t, res.Message, "renderer crashed")
	assert.Equal(t, workflow.StateFailed, res.State)
}

func TestIngestService_Process_PanicAfterPrimaryCommitDefersStaging(t *testing.T) {
	secondary := &MockSecondaryStore{}
	secondary.On("CheckDuplicate", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { panic("driver crashed") }).
		Return(false, nil)
	h := newHarness(t, secondary)

	res := h.svc.Process(context.Background(), submission(fixture(t)))

	require.NotNil(t, res)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.True(t, res.PrimarySaved)
	assert.False(t, res.SecondarySaved)
	assert.Equal(t, workflow.StateDone, res.State)
	assert.Contains(t, res.Path, workflow.StateSecondaryDeferred)
	assert.Equal(t, 1, countRecords(t, h.repo))

	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "driver crashed") {
			found = true
		}
	}
	assert.True(t, found, "warnings: %v", res.Warnings)
}

func TestIngestService_Process_ConcurrentIdenticalSubmissions(t *testing.T) {
	h := newHarness(t, nil)
	sub := submission(fixture(t))

	const workers = 8
	results := make([]*Result, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = h.svc.Process(context.Background(), sub)
		}(i)
	}
	wg.Wait()

	outcomes := map[string]int{}
	for _, res := range results {
		outcomes[res.Outcome]++
	}
	assert.Equal(t, map[string]int{OutcomeSuccess: 1, OutcomeDuplicate: workers - 1}, outcomes)
	assert.Equal(t, 1, countRecords(t, h.repo))
}
