// Package staging writes invoices into the PostgreSQL staging database
// read by the invoice editor.
package staging

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/isnex/invoice-loader/internal/application/port"
	"github.com/isnex/invoice-loader/internal/domain/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrDuplicateInvoice is returned when the supplier already has an
	// invoice with the same number in staging
	ErrDuplicateInvoice = errors.New("invoice already staged")
	// ErrNotConnected is returned when the staging database cannot be reached
	ErrNotConnected = errors.New("staging database not connected")
)

const (
	pgUniqueViolation = "23505"

	defaultConnectTimeout = 10 * time.Second
)

// Config holds connection settings
type Config struct {
	Host           string
	Port           int
	Database       string
	User           string
	Password       string
	SSLMode        string
	MaxConns       int32
	ConnectTimeout time.Duration
}

// DSN renders the connection string
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Store implements port.SecondaryStore. The pool is opened on first use,
// so an unreachable database never blocks startup.
type Store struct {
	cfg    Config
	logger *zap.Logger

	// dials collapses concurrent connection attempts into one
	dials singleflight.Group

	mu     sync.Mutex
	pool   *pgxpool.Pool
	closed bool
}

// New creates a staging store without connecting
func New(cfg Config, logger *zap.Logger) *Store {
	return &Store{
		cfg:    cfg,
		logger: logger,
	}
}

func (s *Store) current() (*pgxpool.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("%w: store closed", ErrNotConnected)
	}
	return s.pool, nil
}

// connect returns the pool, dialing once for all waiting callers. A caller
// whose ctx ends first stops waiting; the shared dial continues on its own
// ConnectTimeout.
func (s *Store) connect(ctx context.Context) (*pgxpool.Pool, error) {
	if pool, err := s.current(); pool != nil || err != nil {
		return pool, err
	}

	ch := s.dials.DoChan("connect", func() (any, error) {
		return s.dial()
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*pgxpool.Pool), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for staging connection: %w", ctx.Err())
	}
}

func (s *Store) dial() (*pgxpool.Pool, error) {
	if pool, err := s.current(); pool != nil || err != nil {
		return pool, err
	}

	pc, err := pgxpool.ParseConfig(s.cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("invalid staging config: %w", err)
	}
	if s.cfg.MaxConns > 0 {
		pc.MaxConns = s.cfg.MaxConns
	}
	timeout := s.cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	pc.ConnConfig.ConnectTimeout = timeout
	pc.ConnConfig.RuntimeParams["application_name"] = "invoice-loader"

	dialCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		s.logger.Warn("Failed to open staging pool", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		s.logger.Warn("Staging database unreachable",
			zap.String("host", s.cfg.Host),
			zap.String("database", s.cfg.Database),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		pool.Close()
		return nil, fmt.Errorf("%w: store closed", ErrNotConnected)
	}
	s.logger.Info("Staging database connected",
		zap.String("host", s.cfg.Host),
		zap.String("database", s.cfg.Database))
	s.pool = pool
	return pool, nil
}

// Close releases the pool. A dial still in flight is discarded when it ends.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}

// TestConnection opens the pool if needed and runs a trivial query
func (s *Store) TestConnection(ctx context.Context) error {
	pool, err := s.connect(ctx)
	if err != nil {
		return err
	}
	var one int
	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	if one != 1 {
		return fmt.Errorf("%w: unexpected SELECT 1 result %d", ErrNotConnected, one)
	}
	return nil
}

// CheckDuplicate reports whether the supplier already staged the invoice number
func (s *Store) CheckDuplicate(ctx context.Context, supplierICO, invoiceNumber string) (bool, error) {
	pool, err := s.connect(ctx)
	if err != nil {
		return false, err
	}

	var count int
	err = pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM invoices_pending WHERE supplier_ico = $1 AND invoice_number = $2`,
		CleanString(supplierICO), CleanString(invoiceNumber),
	).Scan(&count)
	if err != nil {
		s.logger.Error("Failed to check staging duplicate", zap.Error(err))
		return false, fmt.Errorf("failed to check staging duplicate: %w", err)
	}
	return count > 0, nil
}

// SaveInvoice writes the header, its items and the XML document in a single
// transaction and returns the staging ID
func (s *Store) SaveInvoice(ctx context.Context, data *entity.InvoiceData, isdocXML []byte, meta port.StagingMeta) (int64, error) {
	pool, err := s.connect(ctx)
	if err != nil {
		return 0, err
	}

	var id int64
	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO invoices_pending (
				supplier_ico, supplier_name, supplier_dic,
				invoice_number, invoice_date, due_date,
				total_amount, total_vat, total_without_vat,
				currency, status, isdoc_xml,
				customer_name, file_hash, primary_id, source_filename
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			RETURNING id`,
			text(data.Supplier.ICO),
			text(data.Supplier.Name),
			text(data.Supplier.DIC),
			text(data.InvoiceNumber),
			dateArg(data.IssueDate),
			dateArg(data.DueDate),
			data.TotalAmount,
			data.TaxAmount,
			data.NetAmount,
			currency(data.Currency),
			entity.SyncStatusPending,
			string(isdocXML),
			text(meta.Tenant),
			meta.FileHash,
			meta.PrimaryID,
			text(meta.SourceFile),
		).Scan(&id)
		if err != nil {
			return err
		}

		if len(data.Items) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, it := range data.Items {
			name := text(it.Description)
			batch.Queue(`
				INSERT INTO invoice_items_pending (
					invoice_id, line_number, original_item_code,
					original_name, original_quantity, original_unit,
					original_price_per_unit, original_ean, original_vat_rate,
					edited_name, edited_price_buy, final_price_buy
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				id,
				it.LineNumber,
				text(it.ItemCode),
				name,
				it.Quantity,
				text(it.Unit),
				it.UnitPriceNoVAT,
				text(it.EAN),
				it.VATRate,
				name,
				it.UnitPriceNoVAT,
				it.UnitPriceNoVAT,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, fmt.Errorf("%w: %s/%s", ErrDuplicateInvoice, data.Supplier.ICO, data.InvoiceNumber)
		}
		s.logger.Error("Failed to stage invoice",
			zap.String("invoice_number", data.InvoiceNumber),
			zap.Error(err))
		return 0, fmt.Errorf("failed to stage invoice: %w", err)
	}

	s.logger.Info("Invoice staged",
		zap.Int64("staging_id", id),
		zap.String("invoice_number", data.InvoiceNumber),
		zap.Int("items", len(data.Items)))
	return id, nil
}

// ClassifyError maps a staging failure to a low-cardinality reason
func ClassifyError(err error) string {
	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDuplicateInvoice):
		return "duplicate"
	case errors.Is(err, ErrNotConnected):
		return "unreachable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &pgErr):
		return "db_" + pgErr.Code
	}
	return "unknown"
}

// ClassifyError implements port.ErrorClassifier
func (s *Store) ClassifyError(err error) string {
	return ClassifyError(err)
}

func dateArg(d entity.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.Time()
}

func currency(c string) string {
	if c == "" {
		return entity.DefaultCurrency
	}
	return c
}

// Verify interface compliance
var (
	_ port.SecondaryStore  = (*Store)(nil)
	_ port.ErrorClassifier = (*Store)(nil)
)
