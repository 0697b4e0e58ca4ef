package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/isnex/invoice-loader/internal/application/port"
	"github.com/isnex/invoice-loader/internal/domain/entity"
	"github.com/isnex/invoice-loader/pkg/database"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrDuplicate is returned by Create when the tenant already holds a
// document with the same fingerprint
var ErrDuplicate = port.ErrDuplicate

const invoiceColumns = `
	id, customer_name, message_id, gmail_id, sender, subject, received_date,
	file_hash, original_filename, pdf_path, xml_path, created_at, processed_at,
	status, invoice_number, issue_date, due_date, supplier_ico, supplier_name,
	currency, total_amount, tax_amount, net_amount, variable_symbol, item_count,
	nex_genesis_id, nex_status, nex_sync_date, nex_error_message, migration_version`

// InvoiceRepository implements port.PrimaryStore on SQLite
type InvoiceRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *database.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

// IsDuplicate reports whether the tenant already recorded the fingerprint
func (r *InvoiceRepository) IsDuplicate(ctx context.Context, tenant, fileHash string) (bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM invoices WHERE customer_name = ? AND file_hash = ? LIMIT 1`,
		tenant, fileHash,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		r.logger.Error("Failed to check duplicate",
			zap.String("tenant", tenant),
			zap.String("file_hash", fileHash),
			zap.Error(err))
		return false, fmt.Errorf("failed to check duplicate: %w", err)
	}
	return true, nil
}

// Create inserts a new record. A concurrent insert of the same
// (tenant, fingerprint) pair yields ErrDuplicate.
func (r *InvoiceRepository) Create(ctx context.Context, rec *entity.InvoiceRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO invoices (
			customer_name, message_id, gmail_id, sender, subject, received_date,
			file_hash, original_filename, pdf_path, xml_path, created_at, processed_at,
			status, invoice_number, issue_date, due_date, supplier_ico, supplier_name,
			currency, total_amount, tax_amount, net_amount, variable_symbol, item_count,
			nex_genesis_id, nex_status, nex_sync_date, nex_error_message, migration_version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		rec.Tenant,
		nullString(rec.MessageID),
		nullString(rec.GmailID),
		nullString(rec.Sender),
		nullString(rec.Subject),
		nullTime(rec.ReceivedDate),
		rec.FileHash,
		nullString(rec.OriginalFilename),
		rec.PDFPath,
		nullString(rec.XMLPath),
		rec.CreatedAt.UTC(),
		nullTime(rec.ProcessedAt),
		rec.Status,
		nullString(rec.InvoiceNumber),
		nullString(rec.IssueDate),
		nullString(rec.DueDate),
		nullString(rec.SupplierICO),
		nullString(rec.SupplierName),
		nullString(rec.Currency),
		nullDecimal(rec.TotalAmount),
		nullDecimal(rec.TaxAmount),
		nullDecimal(rec.NetAmount),
		nullString(rec.VariableSymbol),
		rec.ItemCount,
		rec.SyncID,
		rec.SyncStatus,
		nullTime(rec.SyncDate),
		nullString(rec.SyncError),
		rec.MigrationVersion,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			r.logger.Info("Duplicate rejected by unique constraint",
				zap.String("tenant", rec.Tenant),
				zap.String("file_hash", rec.FileHash))
			return fmt.Errorf("%w: %s", ErrDuplicate, rec.FileHash)
		}
		r.logger.Error("Failed to create invoice record", zap.Error(err))
		return fmt.Errorf("failed to create invoice record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rec.ID = id

	r.logger.Info("Invoice record created",
		zap.Int64("id", id),
		zap.String("tenant", rec.Tenant),
		zap.String("invoice_number", rec.InvoiceNumber),
		zap.String("status", rec.Status))
	return nil
}

// SetArtifacts records where the source document and XML were stored
func (r *InvoiceRepository) SetArtifacts(ctx context.Context, id int64, pdfPath, xmlPath string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET pdf_path = ?, xml_path = ? WHERE id = ?`,
		pdfPath, nullString(xmlPath), id,
	)
	if err != nil {
		r.logger.Error("Failed to update artifact paths", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update artifact paths: %w", err)
	}
	return nil
}

// GetByID retrieves a record by ID
func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*entity.InvoiceRecord, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
}

// GetBySyncID retrieves a record by its downstream accounting system ID
func (r *InvoiceRepository) GetBySyncID(ctx context.Context, syncID int64) (*entity.InvoiceRecord, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE nex_genesis_id = ? LIMIT 1`, syncID)
}

func (r *InvoiceRepository) getOne(ctx context.Context, query string, arg interface{}) (*entity.InvoiceRecord, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get invoice record", zap.Any("key", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice record: %w", err)
	}
	return rec, nil
}

// List returns the newest records, optionally filtered by tenant
func (r *InvoiceRepository) List(ctx context.Context, tenant string, limit int) ([]*entity.InvoiceRecord, error) {
	where, args := tenantFilter(tenant)
	query := `SELECT ` + invoiceColumns + ` FROM invoices` + where + ` ORDER BY created_at DESC, id DESC LIMIT ?`
	return r.query(ctx, query, append(args, limit)...)
}

// ListCreatedBetween returns records created in [from, to), oldest first
func (r *InvoiceRepository) ListCreatedBetween(ctx context.Context, tenant string, from, to time.Time) ([]*entity.InvoiceRecord, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE customer_name = ? AND created_at >= ? AND created_at < ?
		ORDER BY created_at ASC, id ASC`
	return r.query(ctx, query, tenant, from.UTC(), to.UTC())
}

// ListPendingSync returns records awaiting the accounting system, oldest first
func (r *InvoiceRepository) ListPendingSync(ctx context.Context, tenant string, limit int) ([]*entity.InvoiceRecord, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE nex_status = ?`
	args := []interface{}{entity.SyncStatusPending}
	if tenant != "" {
		query += ` AND customer_name = ?`
		args = append(args, tenant)
	}
	query += ` ORDER BY created_at ASC, id ASC LIMIT ?`
	return r.query(ctx, query, append(args, limit)...)
}

// UpdateSyncStatus stores the accounting system outcome. It reports
// false when no record has the given ID.
func (r *InvoiceRepository) UpdateSyncStatus(ctx context.Context, id int64, update entity.SyncUpdate) (bool, error) {
	if !entity.IsValidSyncStatus(update.Status) {
		return false, fmt.Errorf("invalid sync status %q", update.Status)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE invoices SET
			nex_genesis_id = ?,
			nex_status = ?,
			nex_sync_date = ?,
			nex_error_message = ?
		WHERE id = ?`,
		update.SyncID,
		update.Status,
		time.Now().UTC(),
		nullString(update.ErrorMessage),
		id,
	)
	if err != nil {
		r.logger.Error("Failed to update sync status", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to update sync status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		r.logger.Warn("Sync status update matched no record", zap.Int64("id", id))
		return false, nil
	}

	r.logger.Info("Sync status updated",
		zap.Int64("id", id),
		zap.String("status", update.Status))
	return true, nil
}

// Stats aggregates counts and amounts, optionally for a single tenant
func (r *InvoiceRepository) Stats(ctx context.Context, tenant string) (*entity.Stats, error) {
	where, args := tenantFilter(tenant)

	stats := &entity.Stats{
		ByStatus:     make(map[string]int),
		BySyncStatus: make(map[string]int),
		ByTenant:     make(map[string]int),
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT customer_name, status, nex_status, total_amount FROM invoices`+where, args...)
	if err != nil {
		r.logger.Error("Failed to query stats", zap.Error(err))
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var customer, status, syncStatus string
		var total sql.NullString
		if err := rows.Scan(&customer, &status, &syncStatus, &total); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.Total++
		stats.ByStatus[status]++
		stats.BySyncStatus[syncStatus]++
		stats.ByTenant[customer]++
		if amount := parseDecimal(total); amount.Valid {
			stats.TotalAmount = stats.TotalAmount.Add(amount.Decimal)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stats rows: %w", err)
	}

	return stats, nil
}

// Tenants lists every tenant with at least one record
func (r *InvoiceRepository) Tenants(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT customer_name FROM invoices ORDER BY customer_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	tenants := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, name)
	}
	return tenants, rows.Err()
}

// Ping checks that the database is reachable
func (r *InvoiceRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *InvoiceRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.InvoiceRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list invoice records", zap.Error(err))
		return nil, fmt.Errorf("failed to list invoice records: %w", err)
	}
	defer rows.Close()

	records := []*entity.InvoiceRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*entity.InvoiceRecord, error) {
	var (
		rec                                     entity.InvoiceRecord
		messageID, gmailID, sender, subject     sql.NullString
		originalFilename, xmlPath               sql.NullString
		invoiceNumber, issueDate, dueDate       sql.NullString
		supplierICO, supplierName, currency     sql.NullString
		totalAmount, taxAmount, netAmount       sql.NullString
		variableSymbol, syncError, migrationVer sql.NullString
		receivedDate, processedAt, syncDate     sql.NullTime
		syncID                                  sql.NullInt64
	)

	err := row.Scan(
		&rec.ID,
		&rec.Tenant,
		&messageID,
		&gmailID,
		&sender,
		&subject,
		&receivedDate,
		&rec.FileHash,
		&originalFilename,
		&rec.PDFPath,
		&xmlPath,
		&rec.CreatedAt,
		&processedAt,
		&rec.Status,
		&invoiceNumber,
		&issueDate,
		&dueDate,
		&supplierICO,
		&supplierName,
		&currency,
		&totalAmount,
		&taxAmount,
		&netAmount,
		&variableSymbol,
		&rec.ItemCount,
		&syncID,
		&rec.SyncStatus,
		&syncDate,
		&syncError,
		&migrationVer,
	)
	if err != nil {
		return nil, err
	}

	rec.MessageID = messageID.String
	rec.GmailID = gmailID.String
	rec.Sender = sender.String
	rec.Subject = subject.String
	rec.OriginalFilename = originalFilename.String
	rec.XMLPath = xmlPath.String
	rec.InvoiceNumber = invoiceNumber.String
	rec.IssueDate = issueDate.String
	rec.DueDate = dueDate.String
	rec.SupplierICO = supplierICO.String
	rec.SupplierName = supplierName.String
	rec.Currency = currency.String
	rec.VariableSymbol = variableSymbol.String
	rec.SyncError = syncError.String
	rec.MigrationVersion = migrationVer.String
	rec.TotalAmount = parseDecimal(totalAmount)
	rec.TaxAmount = parseDecimal(taxAmount)
	rec.NetAmount = parseDecimal(netAmount)

	if receivedDate.Valid {
		rec.ReceivedDate = &receivedDate.Time
	}
	if processedAt.Valid {
		rec.ProcessedAt = &processedAt.Time
	}
	if syncDate.Valid {
		rec.SyncDate = &syncDate.Time
	}
	if syncID.Valid {
		rec.SyncID = &syncID.Int64
	}

	return &rec, nil
}

func tenantFilter(tenant string) (string, []interface{}) {
	if tenant == "" {
		return "", nil
	}
	return " WHERE customer_name = ?", []interface{}{tenant}
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// amounts are stored as decimal text so no precision is lost
func nullDecimal(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.String(), Valid: true}
}

func parseDecimal(s sql.NullString) decimal.NullDecimal {
	if !s.Valid {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// Verify interface compliance
var _ port.PrimaryStore = (*InvoiceRepository)(nil)
