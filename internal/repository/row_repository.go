package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/helixir/scienceswipe/internal/domain"
)

// RowRepository reads and patches raw paper rows of a single table.
// Table and column names come from a fixed allow-list; values are always
// passed as query arguments.
type RowRepository interface {
	// Probe reports whether table holds at least one row.
	Probe(ctx context.Context, table string) (bool, error)

	// ListSummarized returns up to limit rows whose AI summary is done,
	// newest first.
	ListSummarized(ctx context.Context, table string, limit int) ([]Row, error)

	// GetBy returns the first row whose column equals value.
	// Returns domain.ErrNotFound if no row matches.
	GetBy(ctx context.Context, table, column string, value any) (Row, error)

	// UpdatePrompt stores the image prompt of the row keyed by keyColumn = key.
	UpdatePrompt(ctx context.Context, table, keyColumn string, key any, prompt string) error

	// UpdateImage stores the image URL, and the prompt when non-nil, of the row
	// keyed by keyColumn = key.
	UpdateImage(ctx context.Context, table, keyColumn string, key any, imageURL string, prompt *string) error
}

// Compile-time interface verification.
var _ RowRepository = (*PgRowRepository)(nil)

// allowedTables are the only tables the row repository will touch.
var allowedTables = map[string]bool{
	"papers":          true,
	"core_papers":     true,
	"regional_papers": true,
}

// allowedKeyColumns are the only columns rows may be looked up by.
var allowedKeyColumns = map[string]bool{
	"id":  true,
	"doi": true,
}

// PgRowRepository is a PostgreSQL implementation of RowRepository.
type PgRowRepository struct {
	db DBTX
}

// NewPgRowRepository creates a new PostgreSQL row repository.
func NewPgRowRepository(db DBTX) *PgRowRepository {
	return &PgRowRepository{db: db}
}

// Probe runs a lightweight existence check against table.
func (r *PgRowRepository) Probe(ctx context.Context, table string) (bool, error) {
	t, err := quoteTable(table)
	if err != nil {
		return false, err
	}

	var one int
	err = r.db.QueryRow(ctx, "SELECT 1 FROM "+t+" LIMIT 1").Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to probe %s: %w", table, err)
	}
	return true, nil
}

// ListSummarized returns rows with ai_summary_done = true ordered by created_at descending.
func (r *PgRowRepository) ListSummarized(ctx context.Context, table string, limit int) ([]Row, error) {
	t, err := quoteTable(table)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, domain.NewValidationError("limit", "limit must be positive")
	}

	query := "SELECT * FROM " + t + " WHERE ai_summary_done = true ORDER BY created_at DESC LIMIT $1"
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}

	result, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s rows: %w", table, err)
	}
	return result, nil
}

// GetBy returns the first row of table where column = value.
func (r *PgRowRepository) GetBy(ctx context.Context, table, column string, value any) (Row, error) {
	t, err := quoteTable(table)
	if err != nil {
		return nil, err
	}
	c, err := quoteKeyColumn(column)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, "SELECT * FROM "+t+" WHERE "+c+" = $1 LIMIT 1", value)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s row by %s: %w", table, column, err)
	}

	row, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError(table, fmt.Sprint(value))
		}
		return nil, fmt.Errorf("failed to read %s row: %w", table, err)
	}
	return row, nil
}

// UpdatePrompt sets ai_image_prompt on a single row.
func (r *PgRowRepository) UpdatePrompt(ctx context.Context, table, keyColumn string, key any, prompt string) error {
	t, err := quoteTable(table)
	if err != nil {
		return err
	}
	c, err := quoteKeyColumn(keyColumn)
	if err != nil {
		return err
	}

	query := "UPDATE " + t + " SET ai_image_prompt = $1 WHERE " + c + " = $2"
	return r.execOne(ctx, table, key, query, prompt, key)
}

// UpdateImage sets image_url, and ai_image_prompt when prompt is non-nil, on a single row.
func (r *PgRowRepository) UpdateImage(ctx context.Context, table, keyColumn string, key any, imageURL string, prompt *string) error {
	t, err := quoteTable(table)
	if err != nil {
		return err
	}
	c, err := quoteKeyColumn(keyColumn)
	if err != nil {
		return err
	}

	if prompt != nil {
		query := "UPDATE " + t + " SET image_url = $1, ai_image_prompt = $2 WHERE " + c + " = $3"
		return r.execOne(ctx, table, key, query, imageURL, *prompt, key)
	}
	query := "UPDATE " + t + " SET image_url = $1 WHERE " + c + " = $2"
	return r.execOne(ctx, table, key, query, imageURL, key)
}

func (r *PgRowRepository) execOne(ctx context.Context, table string, key any, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s row: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError(table, fmt.Sprint(key))
	}
	return nil
}

func quoteTable(table string) (string, error) {
	if !allowedTables[table] {
		return "", domain.NewValidationError("table", fmt.Sprintf("unknown table %q", table))
	}
	return pq.QuoteIdentifier(table), nil
}

func quoteKeyColumn(column string) (string, error) {
	if !allowedKeyColumns[column] {
		return "", domain.NewValidationError("column", fmt.Sprintf("unknown key column %q", column))
	}
	return pq.QuoteIdentifier(column), nil
}
