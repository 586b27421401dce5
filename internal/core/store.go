package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	db "github.com/JonMunkholm/pima/internal/database"
	"github.com/JonMunkholm/pima/internal/ingest"
)

// ErrDuplicateRecord is returned when an import would store a second record
// for the same product SKU and purchase date.
var ErrDuplicateRecord = errors.New("Duplicate Product SKU + Purchase Date")

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// insertAll stores every record in one transaction. On any error nothing is
// committed.
func (s *Service) insertAll(ctx context.Context, records []ingest.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	n, err := db.New(tx).InsertProductInventory(ctx, toInsertParams(records))
	if err != nil {
		return 0, classifyInsertError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", classifyInsertError(err))
	}
	return n, nil
}

// classifyInsertError turns a unique violation into ErrDuplicateRecord and
// leaves everything else as-is.
func classifyInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateRecord, pgErr.Detail)
	}
	return fmt.Errorf("insert inventory: %w", err)
}
