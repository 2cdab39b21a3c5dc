package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/scienceswipe/internal/domain"
)

func TestPgRowRepository_Probe(t *testing.T) {
	ctx := context.Background()

	t.Run("returns true when a row exists", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM "core_papers" LIMIT 1`)).
			WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

		ok, err := NewPgRowRepository(mock).Probe(ctx, "core_papers")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns false for an empty table", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT 1 FROM "papers"`).WillReturnError(pgx.ErrNoRows)

		ok, err := NewPgRowRepository(mock).Probe(ctx, "papers")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("wraps database errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT 1 FROM "papers"`).WillReturnError(errors.New("connection reset"))

		_, err = NewPgRowRepository(mock).Probe(ctx, "papers")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to probe papers")
	})

	t.Run("rejects unknown tables without querying", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		_, err = NewPgRowRepository(mock).Probe(ctx, "users; DROP TABLE papers")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgRowRepository_ListSummarized(t *testing.T) {
	ctx := context.Background()

	t.Run("returns raw rows keyed by column", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "papers" WHERE ai_summary_done = true ORDER BY created_at DESC LIMIT $1`)).
			WithArgs(50).
			WillReturnRows(pgxmock.NewRows([]string{"id", "title_org", "category", "created_at"}).
				AddRow("p-2", "Second", "physics", created).
				AddRow("p-1", "First", nil, created.Add(-time.Hour)))

		rows, err := NewPgRowRepository(mock).ListSummarized(ctx, "papers", 50)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "p-2", rows[0]["id"])
		assert.Equal(t, "physics", rows[0]["category"])
		assert.Nil(t, rows[1]["category"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects non-positive limit", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		_, err = NewPgRowRepository(mock).ListSummarized(ctx, "papers", 0)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("propagates query errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT \* FROM "regional_papers"`).
			WithArgs(10).
			WillReturnError(errors.New("timeout"))

		_, err = NewPgRowRepository(mock).ListSummarized(ctx, "regional_papers", 10)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list regional_papers")
	})
}

func TestPgRowRepository_GetBy(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the matching row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "core_papers" WHERE "id" = $1 LIMIT 1`)).
			WithArgs(int64(42)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "doi"}).AddRow(int64(42), "10.1/abc"))

		row, err := NewPgRowRepository(mock).GetBy(ctx, "core_papers", "id", int64(42))
		require.NoError(t, err)
		assert.Equal(t, int64(42), row["id"])
		assert.Equal(t, "10.1/abc", row["doi"])
	})

	t.Run("returns not found on miss", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`WHERE "doi" = \$1`).
			WithArgs("10.1/missing").
			WillReturnRows(pgxmock.NewRows([]string{"id", "doi"}))

		_, err = NewPgRowRepository(mock).GetBy(ctx, "core_papers", "doi", "10.1/missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("rejects unknown key columns", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		_, err = NewPgRowRepository(mock).GetBy(ctx, "papers", "title_org", "x")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestPgRowRepository_UpdatePrompt(t *testing.T) {
	ctx := context.Background()

	t.Run("updates a single row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "papers" SET ai_image_prompt = $1 WHERE "id" = $2`)).
			WithArgs("A watercolor of a galaxy", "p-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err = NewPgRowRepository(mock).UpdatePrompt(ctx, "papers", "id", "p-1", "A watercolor of a galaxy")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found when no row matched", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE "papers"`).
			WithArgs("prompt", "nope").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = NewPgRowRepository(mock).UpdatePrompt(ctx, "papers", "id", "nope", "prompt")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPgRowRepository_UpdateImage(t *testing.T) {
	ctx := context.Background()

	t.Run("updates url only", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "regional_papers" SET image_url = $1 WHERE "id" = $2`)).
			WithArgs("https://img/1.png", "r-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err = NewPgRowRepository(mock).UpdateImage(ctx, "regional_papers", "id", "r-1", "https://img/1.png", nil)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("updates url and prompt", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		prompt := "A diagram of a cell"
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "core_papers" SET image_url = $1, ai_image_prompt = $2 WHERE "id" = $3`)).
			WithArgs("https://img/2.png", prompt, int64(7)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err = NewPgRowRepository(mock).UpdateImage(ctx, "core_papers", "id", int64(7), "https://img/2.png", &prompt)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
