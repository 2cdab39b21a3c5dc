package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/scienceswipe/internal/domain"
	"github.com/helixir/scienceswipe/internal/sources"
)

func TestOpen_MissingFileCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	store, err := Open(path)
	require.NoError(t, err)

	p := store.Get()
	assert.Equal(t, domain.SourcePapers, p.DatabaseSource)
	assert.Equal(t, domain.SortNewest, p.SortMode)
	assert.False(t, p.OnboardingComplete)
	_, err = uuid.Parse(p.UserID)
	require.NoError(t, err)

	// The generated user id is stable across loads.
	again, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, p.UserID, again.Get().UserID)
}

func TestOpen_CorruptFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("database_source: [unclosed"), 0o644))

	store, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, domain.SourcePapers, store.Get().DatabaseSource)
	assert.NotEmpty(t, store.Get().UserID)
}

func TestOpen_UnknownValuesAreSanitized(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := "database_source: arxiv\nsort_mode: random\ntopics: [\" physics \", \"\"]\nuser_id: not-a-uuid\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store, err := Open(path)
	require.NoError(t, err)

	p := store.Get()
	assert.Equal(t, domain.SourcePapers, p.DatabaseSource)
	assert.Equal(t, domain.SortNewest, p.SortMode)
	assert.Equal(t, []string{"physics"}, p.Topics)
	assert.NotEqual(t, "not-a-uuid", p.UserID)
}

func TestStore_Updates(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	store, err := Open(path)
	require.NoError(t, err)
	userID := store.Get().UserID

	require.NoError(t, store.SetSource(domain.SourceRegional))
	require.NoError(t, store.SetSortMode(domain.SortMindBlown))
	require.NoError(t, store.CompleteOnboarding([]string{"q-bio", "physics"}))

	assert.ErrorIs(t, store.SetSource("arxiv"), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.SetSortMode("random"), domain.ErrInvalidInput)

	reloaded, err := Open(path)
	require.NoError(t, err)
	p := reloaded.Get()
	assert.Equal(t, domain.SourceRegional, p.DatabaseSource)
	assert.Equal(t, domain.SortMindBlown, p.SortMode)
	assert.True(t, p.OnboardingComplete)
	assert.Equal(t, []string{"q-bio", "physics"}, p.Topics)
	assert.Equal(t, userID, p.UserID)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	require.NoError(t, store.CompleteOnboarding([]string{"physics"}))

	p := store.Get()
	p.Topics[0] = "mutated"

	assert.Equal(t, []string{"physics"}, store.Get().Topics)
}

func TestStore_PersistsSelector(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	store, err := Open(path)
	require.NoError(t, err)

	sel := sources.NewSelector(store.Get().DatabaseSource, store.SetSource)
	_, err = sel.Toggle()
	require.NoError(t, err)

	reloaded, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceCore, reloaded.Get().DatabaseSource)
}
