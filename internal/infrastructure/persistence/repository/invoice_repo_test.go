package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/isnex/invoice-loader/internal/domain/entity"
	"github.com/isnex/invoice-loader/pkg/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRepo(t *testing.T) *InvoiceRepository {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "invoices.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).Migrate(context.Background()))
	return NewInvoiceRepository(db, logger)
}

func newRecord(tenant, hash string) *entity.InvoiceRecord {
	data := &entity.InvoiceData{
		InvoiceNumber: "20250123",
		IssueDate:     entity.Date{Year: 2025, Month: 9, Day: 16},
		TotalAmount:   decimal.NewNullDecimal(decimal.RequireFromString("1234.50")),
		Currency:      "EUR",
		Supplier:      entity.Party{Name: "L & Š, s.r.o.", ICO: "36555720"},
		Bank:          entity.BankDetails{VariableSymbol: "20250123"},
		Items:         []entity.InvoiceItem{{LineNumber: 1}, {LineNumber: 2}},
	}
	sub := entity.Submission{
		Filename:   "invoice.pdf",
		MessageID:  "<msg@example.com>",
		Sender:     "billing@ls.sk",
		ReceivedAt: time.Date(2025, 9, 16, 8, 30, 0, 0, time.UTC),
	}
	rec := entity.NewInvoiceRecord(tenant, hash, sub, data)
	rec.Status = entity.RecordStatusProcessed
	return rec
}

func TestInvoiceRepository_CreateAndGet(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	rec := newRecord("MAGERSTAV", "hash-1")
	require.NoError(t, repo.Create(ctx, rec))
	require.NotZero(t, rec.ID)

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "MAGERSTAV", got.Tenant)
	assert.Equal(t, "hash-1", got.FileHash)
	assert.Equal(t, "20250123", got.InvoiceNumber)
	assert.Equal(t, "2025-09-16", got.IssueDate)
	assert.Empty(t, got.DueDate)
	assert.True(t, got.TotalAmount.Valid)
	assert.Equal(t, "1234.5", got.TotalAmount.Decimal.String())
	assert.False(t, got.TaxAmount.Valid)
	assert.Equal(t, 2, got.ItemCount)
	assert.Equal(t, entity.SyncStatusPending, got.SyncStatus)
	assert.Equal(t, entity.SchemaVersion, got.MigrationVersion)
	require.NotNil(t, got.ReceivedDate)
	assert.True(t, got.ReceivedDate.Equal(time.Date(2025, 9, 16, 8, 30, 0, 0, time.UTC)))
	assert.Nil(t, got.SyncID)
}

func TestInvoiceRepository_GetByID_NotFound(t *testing.T) {
	repo := setupRepo(t)

	got, err := repo.GetByID(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInvoiceRepository_Duplicate(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRecord("A", "same")))

	dup, err := repo.IsDuplicate(ctx, "A", "same")
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = repo.IsDuplicate(ctx, "B", "same")
	require.NoError(t, err)
	assert.False(t, dup, "duplicates are scoped to the tenant")

	err = repo.Create(ctx, newRecord("A", "same"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))

	require.NoError(t, repo.Create(ctx, newRecord("B", "same")))
}

func TestInvoiceRepository_ConcurrentCreate(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, newRecord("A", "race"))
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.True(t, errors.Is(err, ErrDuplicate), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, created)

	stats, err := repo.Stats(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

func TestInvoiceRepository_SyncStatus(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := newRecord("A", "h1")
	second := newRecord("A", "h2")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	pending, err := repo.ListPendingSync(ctx, "A", 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)

	syncID := int64(7001)
	ok, err := repo.UpdateSyncStatus(ctx, first.ID, entity.SyncUpdate{SyncID: &syncID, Status: entity.SyncStatusSynced})
	require.NoError(t, err)
	assert.True(t, ok)

	pending, err = repo.ListPendingSync(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	bySync, err := repo.GetBySyncID(ctx, syncID)
	require.NoError(t, err)
	require.NotNil(t, bySync)
	assert.Equal(t, first.ID, bySync.ID)
	assert.NotNil(t, bySync.SyncDate)

	ok, err = repo.UpdateSyncStatus(ctx, 999, entity.SyncUpdate{Status: entity.SyncStatusError, ErrorMessage: "x"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.UpdateSyncStatus(ctx, first.ID, entity.SyncUpdate{Status: "bogus"})
	assert.Error(t, err)
}

func TestInvoiceRepository_ListStatsTenants(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec := newRecord("A", fmt.Sprintf("a-%d", i))
		if i == 2 {
			rec.Status = entity.RecordStatusPartial
			rec.TotalAmount = decimal.NullDecimal{}
		}
		require.NoError(t, repo.Create(ctx, rec))
	}
	require.NoError(t, repo.Create(ctx, newRecord("B", "b-0")))

	list, err := repo.List(ctx, "A", 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	all, err := repo.List(ctx, "", 100)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	stats, err := repo.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.ByStatus[entity.RecordStatusProcessed])
	assert.Equal(t, 1, stats.ByStatus[entity.RecordStatusPartial])
	assert.Equal(t, 4, stats.BySyncStatus[entity.SyncStatusPending])
	assert.Equal(t, map[string]int{"A": 3, "B": 1}, stats.ByTenant)
	assert.Equal(t, "3703.5", stats.TotalAmount.String())

	tenants, err := repo.Tenants(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, tenants)
}

func TestInvoiceRepository_ListCreatedBetween(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	day := time.Date(2025, 9, 16, 0, 0, 0, 0, time.UTC)
	stamps := []time.Time{day.Add(-time.Minute), day.Add(time.Hour), day.Add(23 * time.Hour), day.Add(24 * time.Hour)}
	for i, ts := range stamps {
		rec := newRecord("A", fmt.Sprintf("h-%d", i))
		rec.CreatedAt = ts
		require.NoError(t, repo.Create(ctx, rec))
	}

	got, err := repo.ListCreatedBetween(ctx, "A", day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "h-1", got[0].FileHash)
	assert.Equal(t, "h-2", got[1].FileHash)
}

func TestInvoiceRepository_SetArtifacts(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	rec := newRecord("A", "h1")
	require.NoError(t, repo.Create(ctx, rec))
	require.NoError(t, repo.SetArtifacts(ctx, rec.ID, "/files/a.pdf", "/files/a.xml"))

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "/files/a.pdf", got.PDFPath)
	assert.Equal(t, "/files/a.xml", got.XMLPath)

	require.NoError(t, repo.Ping(ctx))
}
