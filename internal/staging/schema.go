package staging

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// schemaSQL creates the staging tables when they do not exist yet. The
// invoice editor owns the schema in production; this bootstrap serves
// fresh installs and tests.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS invoices_pending (
    id BIGSERIAL PRIMARY KEY,
    supplier_ico TEXT,
    supplier_name TEXT,
    supplier_dic TEXT,
    invoice_number TEXT,
    invoice_date DATE,
    due_date DATE,
    total_amount NUMERIC(15, 2),
    total_vat NUMERIC(15, 2),
    total_without_vat NUMERIC(15, 2),
    currency TEXT NOT NULL DEFAULT 'EUR',
    status TEXT NOT NULL DEFAULT 'pending',
    isdoc_xml TEXT,
    customer_name TEXT,
    file_hash TEXT,
    primary_id BIGINT,
    source_filename TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (supplier_ico, invoice_number)
);

CREATE TABLE IF NOT EXISTS invoice_items_pending (
    id BIGSERIAL PRIMARY KEY,
    invoice_id BIGINT NOT NULL REFERENCES invoices_pending(id) ON DELETE CASCADE,
    line_number INTEGER NOT NULL,
    original_item_code TEXT,
    original_name TEXT,
    original_quantity NUMERIC(15, 3),
    original_unit TEXT,
    original_price_per_unit NUMERIC(15, 4),
    original_ean TEXT,
    original_vat_rate NUMERIC(5, 2),
    edited_name TEXT,
    edited_price_buy NUMERIC(15, 4),
    final_price_buy NUMERIC(15, 4),
    UNIQUE (invoice_id, line_number)
);

CREATE INDEX IF NOT EXISTS idx_invoices_pending_status ON invoices_pending(status);
`

// EnsureSchema creates the staging tables if they are missing
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.connect(ctx)
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create staging schema: %w", err)
	}
	s.logger.Info("Staging schema ready", zap.String("database", s.cfg.Database))
	return nil
}
