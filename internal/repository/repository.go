// Package repository provides row store access for ScienceSwipe.
//
// # Repositories
//
//   - PgRowRepository: reads and patches raw rows of the per-source paper
//     tables. Rows are returned untyped because each source has its own
//     shape; normalization happens in the sources package.
//   - PgReactionRepository: per-user reaction rows and the reaction_counts
//     aggregate view.
//
// # Error Handling
//
// Methods return domain errors where the caller can act on them:
//
//   - domain.ErrNotFound: no row matched the key
//   - domain.ErrAlreadyExists: unique constraint violation (duplicate reaction)
//   - domain.ErrInvalidInput: unknown table or column name
//
// Other database errors are wrapped with fmt.Errorf and %w.
//
// # Transactions
//
// Repositories accept DBTX so that a pgx.Tx can be passed instead of the
// pool. Operations that need atomicity open their own transaction when the
// DBTX is able to begin one.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/scienceswipe/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX

// txBeginner is implemented by DBTX values that can start a transaction
// (*database.DB, *pgxpool.Pool, pgx.Tx via savepoints).
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Row is one raw row keyed by column name.
type Row = map[string]any

// PostgreSQL error codes used for constraint violation detection.
const (
	pgUniqueViolation = "23505" // unique_violation
	pgUndefinedTable  = "42P01" // undefined_table
)

// isPgUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isPgUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgUniqueViolation
}

// IsUndefinedTable reports whether err is caused by a missing table.
func IsUndefinedTable(err error) bool {
	return pgErrorCode(err) == pgUndefinedTable
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
