package persistence

import (
	"fmt"

	"gorm.io/gorm"
)

// sqliteSchema mirrors the postgres migrations for the embedded SQLite mode.
// Decimals and UUIDs are kept as TEXT so values round-trip without float conversion.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS offers (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		number TEXT NOT NULL UNIQUE,
		company_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		tax_total TEXT NOT NULL,
		total TEXT NOT NULL,
		note TEXT,
		valid_until DATETIME,
		sent_at DATETIME,
		decided_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		number TEXT NOT NULL UNIQUE,
		company_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		tax_total TEXT NOT NULL,
		total TEXT NOT NULL,
		note TEXT,
		offer_id TEXT,
		confirmed_at DATETIME,
		fulfilled_at DATETIME,
		cancelled_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS deliveries (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		number TEXT NOT NULL UNIQUE,
		company_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		tax_total TEXT NOT NULL,
		total TEXT NOT NULL,
		note TEXT,
		order_id TEXT,
		delivery_date DATETIME,
		signed_by TEXT,
		signed_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		number TEXT NOT NULL UNIQUE,
		company_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		tax_total TEXT NOT NULL,
		total TEXT NOT NULL,
		note TEXT,
		order_id TEXT,
		delivery_id TEXT,
		issue_date DATETIME,
		due_date DATETIME NOT NULL,
		sent_at DATETIME,
		paid_at DATETIME,
		cancelled_at DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_status_due ON invoices (status, due_date)`,
	`CREATE INDEX IF NOT EXISTS idx_offers_status_valid ON offers (status, valid_until)`,
	`CREATE TABLE IF NOT EXISTS document_line_items (
		id TEXT PRIMARY KEY,
		document_kind TEXT NOT NULL,
		document_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		product_id TEXT NOT NULL,
		description TEXT,
		quantity TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		tax_rate TEXT NOT NULL,
		line_total TEXT NOT NULL,
		line_tax TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_line_items_document ON document_line_items (document_kind, document_id)`,
	`CREATE TABLE IF NOT EXISTS document_sequences (
		kind TEXT NOT NULL,
		year INTEGER NOT NULL,
		last_number INTEGER NOT NULL,
		PRIMARY KEY (kind, year)
	)`,
}

// EnsureSQLiteSchema creates the document tables on a SQLite database if they are missing
func EnsureSQLiteSchema(db *gorm.DB) error {
	for _, stmt := range sqliteSchema {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create sqlite schema: %w", err)
		}
	}
	return nil
}
