// Package cache stores normalized paper lists in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/helixir/scienceswipe/internal/domain"
)

// DefaultTTL is used when no TTL is configured.
const DefaultTTL = 5 * time.Minute

// Config holds Redis connection settings.
type Config struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// kv is the part of the Redis client used by PaperCache.
type kv interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// PaperCache caches paper lists per source.
type PaperCache struct {
	rdb    kv
	ttl    time.Duration
	prefix string
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg Config) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// NewPaperCache creates a cache over rdb.
func NewPaperCache(rdb kv, ttl time.Duration, keyPrefix string) *PaperCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if keyPrefix == "" {
		keyPrefix = "scienceswipe:"
	}
	return &PaperCache{rdb: rdb, ttl: ttl, prefix: keyPrefix}
}

func (c *PaperCache) key(source domain.Source) string {
	return c.prefix + "papers:" + string(source)
}

// Get returns the cached list of source. A miss is (nil, false, nil).
func (c *PaperCache) Get(ctx context.Context, source domain.Source) ([]domain.Paper, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(source)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var papers []domain.Paper
	if err := json.Unmarshal(raw, &papers); err != nil {
		// A corrupt entry is a miss; the next Set overwrites it.
		return nil, false, nil
	}
	return papers, true, nil
}

// Set stores papers for source with the configured TTL.
func (c *PaperCache) Set(ctx context.Context, source domain.Source, papers []domain.Paper) error {
	raw, err := json.Marshal(papers)
	if err != nil {
		return fmt.Errorf("marshal papers: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key(source), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the cached list of source.
func (c *PaperCache) Delete(ctx context.Context, source domain.Source) error {
	if err := c.rdb.Del(ctx, c.key(source)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
