package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/helixir/scienceswipe/internal/database"
	"github.com/helixir/scienceswipe/internal/domain"
)

// ReactionKey identifies the paper a reaction belongs to.
type ReactionKey struct {
	Source   domain.Source
	PaperRef string
}

func (k ReactionKey) String() string {
	return string(k.Source) + ":" + k.PaperRef
}

// ReactionRepository persists per-user reactions and reads their aggregate.
type ReactionRepository interface {
	// Count returns the aggregate reaction count of a paper (0 when none).
	Count(ctx context.Context, key ReactionKey) (int, error)

	// Counts returns reaction counts for every paper of a source that has any.
	Counts(ctx context.Context, source domain.Source) (map[string]int, error)

	// Exists reports whether userID has reacted to the paper.
	Exists(ctx context.Context, key ReactionKey, userID string) (bool, error)

	// Insert records a reaction. An empty reason is stored as NULL.
	// Returns domain.ErrAlreadyExists if the user already reacted.
	Insert(ctx context.Context, key ReactionKey, userID, reason string) error

	// Delete removes the user's reaction. Deleting a missing reaction is not an error.
	Delete(ctx context.Context, key ReactionKey, userID string) error

	// Replace atomically deletes the user's reaction and inserts a new one
	// carrying reason.
	Replace(ctx context.Context, key ReactionKey, userID, reason string) error
}

// Compile-time interface verification.
var _ ReactionRepository = (*PgReactionRepository)(nil)

// PgReactionRepository is a PostgreSQL implementation of ReactionRepository.
type PgReactionRepository struct {
	db     DBTX
	logger zerolog.Logger
}

// NewPgReactionRepository creates a new PostgreSQL reaction repository.
func NewPgReactionRepository(db DBTX, logger zerolog.Logger) *PgReactionRepository {
	return &PgReactionRepository{
		db:     db,
		logger: logger.With().Str("component", "reaction_repository").Logger(),
	}
}

// Count reads the aggregate from the reaction_counts view.
func (r *PgReactionRepository) Count(ctx context.Context, key ReactionKey) (int, error) {
	query := `
		SELECT count
		FROM reaction_counts
		WHERE source = $1 AND paper_ref = $2`

	var count int64
	err := r.db.QueryRow(ctx, query, string(key.Source), key.PaperRef).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to count reactions: %w", err)
	}
	return int(count), nil
}

// Counts reads all aggregates of a source.
func (r *PgReactionRepository) Counts(ctx context.Context, source domain.Source) (map[string]int, error) {
	query := `
		SELECT paper_ref, count
		FROM reaction_counts
		WHERE source = $1`

	rows, err := r.db.Query(ctx, query, string(source))
	if err != nil {
		return nil, fmt.Errorf("failed to list reaction counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			ref   string
			count int64
		)
		if err := rows.Scan(&ref, &count); err != nil {
			return nil, fmt.Errorf("failed to scan reaction count: %w", err)
		}
		counts[ref] = int(count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reaction counts: %w", err)
	}
	return counts, nil
}

// Exists checks for the user's reaction row.
func (r *PgReactionRepository) Exists(ctx context.Context, key ReactionKey, userID string) (bool, error) {
	if userID == "" {
		return false, domain.NewValidationError("user_id", "user id is required")
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM user_reactions
			WHERE source = $1 AND paper_ref = $2 AND user_id = $3
		)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, string(key.Source), key.PaperRef, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check reaction: %w", err)
	}
	return exists, nil
}

// Insert adds a reaction row.
func (r *PgReactionRepository) Insert(ctx context.Context, key ReactionKey, userID, reason string) error {
	if userID == "" {
		return domain.NewValidationError("user_id", "user id is required")
	}
	return insertReaction(ctx, r.db, key, userID, reason)
}

// Delete removes a reaction row.
func (r *PgReactionRepository) Delete(ctx context.Context, key ReactionKey, userID string) error {
	if userID == "" {
		return domain.NewValidationError("user_id", "user id is required")
	}
	return deleteReaction(ctx, r.db, key, userID)
}

// Replace swaps the user's reaction for one carrying reason without changing
// the aggregate count.
func (r *PgReactionRepository) Replace(ctx context.Context, key ReactionKey, userID, reason string) error {
	if userID == "" {
		return domain.NewValidationError("user_id", "user id is required")
	}

	replace := func(db DBTX) error {
		if err := deleteReaction(ctx, db, key, userID); err != nil {
			return err
		}
		return insertReaction(ctx, db, key, userID, reason)
	}

	conn, ok := r.db.(database.TxBeginner)
	if !ok {
		// Not able to open a transaction; run on the given DBTX as is.
		return replace(r.db)
	}
	return database.WithTransaction(ctx, conn, r.logger, func(tx pgx.Tx) error {
		return replace(tx)
	})
}

func insertReaction(ctx context.Context, db DBTX, key ReactionKey, userID, reason string) error {
	query := `
		INSERT INTO user_reactions (source, paper_ref, user_id, reason)
		VALUES ($1, $2, $3, $4)`

	var reasonArg *string
	if reason != "" {
		reasonArg = &reason
	}

	if _, err := db.Exec(ctx, query, string(key.Source), key.PaperRef, userID, reasonArg); err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewAlreadyExistsError("reaction", key.String())
		}
		return fmt.Errorf("failed to insert reaction: %w", err)
	}
	return nil
}

func deleteReaction(ctx context.Context, db DBTX, key ReactionKey, userID string) error {
	query := `
		DELETE FROM user_reactions
		WHERE source = $1 AND paper_ref = $2 AND user_id = $3`

	if _, err := db.Exec(ctx, query, string(key.Source), key.PaperRef, userID); err != nil {
		return fmt.Errorf("failed to delete reaction: %w", err)
	}
	return nil
}
