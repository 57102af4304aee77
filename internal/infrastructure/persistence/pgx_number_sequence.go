package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/docflow/internal/domain/document"
	"github.com/erp/docflow/internal/domain/shared"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const nextSequenceSQL = `
	INSERT INTO document_sequences (kind, year, last_number)
	VALUES ($1, $2, 1)
	ON CONFLICT (kind, year)
	DO UPDATE SET last_number = document_sequences.last_number + 1
	RETURNING last_number
`

// rowQuerier is the subset of pgxpool.Pool used for numbering
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPgxPool opens and pings a pgx connection pool
func NewPgxPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database dsn: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return pool, nil
}

// PgxNumberSequence allocates numbers with one round trip on a pgx pool,
// bypassing gorm for the hot path of document creation.
type PgxNumberSequence struct {
	pool rowQuerier
	now  func() time.Time
}

// NewPgxNumberSequence creates a PgxNumberSequence
func NewPgxNumberSequence(pool *pgxpool.Pool) *PgxNumberSequence {
	return &PgxNumberSequence{pool: pool, now: time.Now}
}

// Next returns the next number for kind
func (s *PgxNumberSequence) Next(ctx context.Context, kind document.Kind) (string, error) {
	if !kind.IsValid() {
		return "", shared.NewValidationError("kind", "Unknown document kind: "+string(kind))
	}
	year := s.now().UTC().Year()

	var last int64
	if err := s.pool.QueryRow(ctx, nextSequenceSQL, string(kind), year).Scan(&last); err != nil {
		return "", shared.NewPersistenceError("allocate "+string(kind)+" number", err)
	}
	return FormatDocumentNumber(kind, year, last), nil
}
