package staging

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/isnex/invoice-loader/internal/application/port"
	"github.com/isnex/invoice-loader/internal/domain/entity"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCleanString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Coca Cola", "Coca Cola"},
		{"nul padding", "ABC\x00\x00\x00", "ABC"},
		{"control chars", "A\x01B\x1fC", "ABC"},
		{"keeps newline and tab", "a\tb\nc", "a\tb\nc"},
		{"trims", "  MÁGERSTAV  ", "MÁGERSTAV"},
		{"invalid utf8", "ok\xffok", "okok"},
		{"only junk", "\x00 \x02", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanString(tt.input))
		})
	}
}

func TestText_EmptyIsNull(t *testing.T) {
	assert.Nil(t, text(" \x00 "))
	assert.Equal(t, "x", text("x"))
}

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, Database: "staging", User: "loader", Password: "p@ss:word", SSLMode: "disable"}

	parsed, err := pgconn.ParseConfig(cfg.DSN())
	require.NoError(t, err)
	assert.Equal(t, "db", parsed.Host)
	assert.Equal(t, uint16(5432), parsed.Port)
	assert.Equal(t, "staging", parsed.Database)
	assert.Equal(t, "loader", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Password)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"duplicate", fmt.Errorf("%w: x", ErrDuplicateInvoice), "duplicate"},
		{"unreachable", fmt.Errorf("%w: refused", ErrNotConnected), "unreachable"},
		{"timeout", fmt.Errorf("stage: %w", context.DeadlineExceeded), "timeout"},
		{"pg error", &pgconn.PgError{Code: "42P01"}, "db_42P01"},
		{"other", errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestStore_Unreachable(t *testing.T) {
	store := New(Config{
		Host:           "127.0.0.1",
		Port:           1,
		Database:       "none",
		User:           "none",
		ConnectTimeout: 200 * time.Millisecond,
	}, zap.NewNop())
	defer store.Close()

	err := store.TestConnection(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotConnected))

	_, err = store.SaveInvoice(context.Background(), &entity.InvoiceData{}, nil, port.StagingMeta{})
	assert.True(t, errors.Is(err, ErrNotConnected))
}

// silentListener accepts connections and never answers
func silentListener(t *testing.T) (listenPort int, accepted *atomic.Int32) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	accepted = &atomic.Int32{}

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted.Add(1)
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
	return ln.Addr().(*net.TCPAddr).Port, accepted
}

func TestStore_WaitersHonorTheirOwnDeadline(t *testing.T) {
	listenPort, accepted := silentListener(t)
	store := New(Config{
		Host:           "127.0.0.1",
		Port:           listenPort,
		Database:       "none",
		User:           "none",
		SSLMode:        "disable",
		ConnectTimeout: 5 * time.Second,
	}, zap.NewNop())
	defer store.Close()

	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	elapsed := make([]time.Duration, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
			defer cancel()
			start := time.Now()
			_, errs[i] = store.CheckDuplicate(ctx, "36555720", "20250123")
			elapsed[i] = time.Since(start)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.Error(t, errs[i])
		assert.True(t, errors.Is(errs[i], context.DeadlineExceeded), "caller %d: %v", i, errs[i])
		assert.Equal(t, "timeout", ClassifyError(errs[i]))
		assert.Less(t, elapsed[i], 2*time.Second, "caller %d waited on the shared dial", i)
	}
	assert.Equal(t, int32(1), accepted.Load(), "concurrent callers should share one dial")
}

func TestStore_CloseRejectsFurtherUse(t *testing.T) {
	store := New(Config{Host: "127.0.0.1", Port: 1}, zap.NewNop())
	store.Close()

	err := store.TestConnection(context.Background())
	assert.True(t, errors.Is(err, ErrNotConnected))
}

// Runs against a live database when STAGING_TEST_DSN is set
func TestStore_Integration(t *testing.T) {
	dsn := os.Getenv("STAGING_TEST_DSN")
	if dsn == "" {
		t.Skip("STAGING_TEST_DSN not set")
	}
	pc, err := pgconn.ParseConfig(dsn)
	require.NoError(t, err)

	store := New(Config{
		Host:           pc.Host,
		Port:           int(pc.Port),
		Database:       pc.Database,
		User:           pc.User,
		Password:       pc.Password,
		SSLMode:        "disable",
		ConnectTimeout: 5 * time.Second,
	}, zap.NewNop())
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.TestConnection(ctx))
	require.NoError(t, store.EnsureSchema(ctx))

	number := fmt.Sprintf("T%d", time.Now().UnixNano())
	data := &entity.InvoiceData{
		InvoiceNumber: number,
		IssueDate:     entity.Date{Year: 2025, Month: 9, Day: 16},
		TotalAmount:   decimal.NewNullDecimal(decimal.RequireFromString("36.65")),
		Supplier:      entity.Party{Name: "L & Š, s.r.o.\x00", ICO: "36555720"},
		Items: []entity.InvoiceItem{
			{LineNumber: 1, Description: "Coca Cola", Quantity: decimal.NewNullDecimal(decimal.NewFromInt(6))},
			{LineNumber: 2, Description: "Paleta"},
		},
	}

	dup, err := store.CheckDuplicate(ctx, "36555720", number)
	require.NoError(t, err)
	assert.False(t, dup)

	id, err := store.SaveInvoice(ctx, data, []byte("<Invoice/>"), port.StagingMeta{Tenant: "test", FileHash: "h"})
	require.NoError(t, err)
	assert.NotZero(t, id)

	dup, err = store.CheckDuplicate(ctx, "36555720", number)
	require.NoError(t, err)
	assert.True(t, dup)

	_, err = store.SaveInvoice(ctx, data, nil, port.StagingMeta{})
	assert.True(t, errors.Is(err, ErrDuplicateInvoice))
}
