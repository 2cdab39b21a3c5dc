//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/helixir/scienceswipe/internal/config"
	"github.com/helixir/scienceswipe/internal/database"
	"github.com/helixir/scienceswipe/internal/domain"
	"github.com/helixir/scienceswipe/migrations"
)

// setupPostgres starts a throwaway PostgreSQL container and applies the
// repository migrations to it.
func setupPostgres(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("scienceswipe"),
		postgres.WithUsername("scienceswipe"),
		postgres.WithPassword("scienceswipe"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := &config.DatabaseConfig{
		Host:           host,
		Port:           port.Int(),
		User:           "scienceswipe",
		Password:       "scienceswipe",
		Name:           "scienceswipe",
		SSLMode:        config.SSLModeDisable,
		MaxConns:       4,
		MinConns:       1,
		ConnectTimeout: 10 * time.Second,
	}

	db, err := database.New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(db.Close)

	migrator, err := database.NewMigrator(db, migrations.FS, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Close())

	return db
}

func TestIntegration_RowRepository(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	repo := NewPgRowRepository(db)

	ok, err := repo.Probe(ctx, "core_papers")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = db.Exec(ctx, `
		INSERT INTO core_papers (doi, title_org, ai_summary_done, category, created_at)
		VALUES ('10.1/a', 'Older', true, 'physics', NOW() - INTERVAL '1 day'),
		       ('10.1/b', 'Newer', true, '["biology","chemistry"]', NOW()),
		       ('10.1/c', 'Draft', false, NULL, NOW())`)
	require.NoError(t, err)

	ok, err = repo.Probe(ctx, "core_papers")
	require.NoError(t, err)
	assert.True(t, ok)

	rows, err := repo.ListSummarized(ctx, "core_papers", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Newer", rows[0]["title_org"])

	row, err := repo.GetBy(ctx, "core_papers", "doi", "10.1/a")
	require.NoError(t, err)
	key := row["id"]

	prompt := "An illustration of particles"
	require.NoError(t, repo.UpdateImage(ctx, "core_papers", "id", key, "https://img/a.png", &prompt))

	row, err = repo.GetBy(ctx, "core_papers", "id", key)
	require.NoError(t, err)
	assert.Equal(t, "https://img/a.png", row["image_url"])
	assert.Equal(t, prompt, row["ai_image_prompt"])

	_, err = repo.GetBy(ctx, "core_papers", "doi", "10.1/zzz")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIntegration_ReactionRepository(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	repo := NewPgReactionRepository(db, zerolog.Nop())
	key := ReactionKey{Source: domain.SourcePapers, PaperRef: "p-1"}

	require.NoError(t, repo.Insert(ctx, key, "alice", ""))
	require.NoError(t, repo.Insert(ctx, key, "bob", "wow"))
	assert.ErrorIs(t, repo.Insert(ctx, key, "alice", ""), domain.ErrAlreadyExists)

	count, err := repo.Count(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, repo.Replace(ctx, key, "alice", "now with a reason"))
	count, err = repo.Count(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, repo.Delete(ctx, key, "bob"))
	exists, err := repo.Exists(ctx, key, "bob")
	require.NoError(t, err)
	assert.False(t, exists)

	counts, err := repo.Counts(ctx, domain.SourcePapers)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"p-1": 1}, counts)
}
