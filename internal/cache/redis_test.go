package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/scienceswipe/internal/domain"
)

// memKV is an in-memory kv that records expirations.
type memKV struct {
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *memKV) Get(ctx context.Context, key string) *goredis.StringCmd {
	if m.err != nil {
		return goredis.NewStringResult("", m.err)
	}
	v, ok := m.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(string(v), nil)
}

func (m *memKV) Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd {
	if m.err != nil {
		return goredis.NewStatusResult("", m.err)
	}
	m.data[key] = value.([]byte)
	m.ttls[key] = expiration
	return goredis.NewStatusResult("OK", nil)
}

func (m *memKV) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	if m.err != nil {
		return goredis.NewIntResult(0, m.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

func TestPaperCache_RoundTrip(t *testing.T) {
	store := newMemKV()
	cache := NewPaperCache(store, time.Minute, "test:")
	ctx := context.Background()
	score := 0.5
	papers := []domain.Paper{{
		ID:        "p1",
		Source:    domain.SourceCore,
		Category:  []string{"physics"},
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Score:     &score,
		AIKeyTakeaways: []domain.Takeaway{
			{Kind: domain.TakeawayWhyItMatters, Text: "because"},
		},
	}}

	_, ok, err := cache.Get(ctx, domain.SourceCore)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, domain.SourceCore, papers))
	assert.Equal(t, time.Minute, store.ttls["test:papers:core"])

	got, ok, err := cache.Get(ctx, domain.SourceCore)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, papers, got)

	require.NoError(t, cache.Delete(ctx, domain.SourceCore))
	_, ok, err = cache.Get(ctx, domain.SourceCore)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPaperCache_SourcesAreSeparate(t *testing.T) {
	cache := NewPaperCache(newMemKV(), 0, "")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, domain.SourcePapers, []domain.Paper{{ID: "a"}}))

	_, ok, err := cache.Get(ctx, domain.SourceRegional)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "scienceswipe:papers:papers", cache.key(domain.SourcePapers))
	assert.Equal(t, DefaultTTL, cache.ttl)
}

func TestPaperCache_CorruptEntryIsMiss(t *testing.T) {
	store := newMemKV()
	store.data["test:papers:papers"] = []byte("{not json")
	cache := NewPaperCache(store, time.Minute, "test:")

	_, ok, err := cache.Get(context.Background(), domain.SourcePapers)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPaperCache_Errors(t *testing.T) {
	store := newMemKV()
	store.err = errors.New("connection reset")
	cache := NewPaperCache(store, time.Minute, "test:")
	ctx := context.Background()

	_, _, err := cache.Get(ctx, domain.SourcePapers)
	assert.ErrorContains(t, err, "redis get")
	assert.ErrorContains(t, cache.Set(ctx, domain.SourcePapers, nil), "redis set")
	assert.ErrorContains(t, cache.Delete(ctx, domain.SourcePapers), "redis del")
}
