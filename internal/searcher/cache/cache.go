// Package cache memoises query results in Redis. Keys are scoped to one
// index and similarity configuration, and concurrent misses on the same key
// are collapsed with singleflight.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/logger"
	pkgredis "github.com/Adithya-Monish-Kumar-K/irbench/pkg/redis"
)

const keyPrefix = "irbench:rank:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store  Store
	scope  string
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New returns a cache whose keys live under scope, typically the index name
// plus the similarity parameters.
func New(store Store, scope string, ttl time.Duration) *QueryCache {
	return &QueryCache{
		store:  store,
		scope:  scope,
		ttl:    ttl,
		logger: logger.WithComponent("query-cache"),
	}
}

var _ Store = (*pkgredis.Client)(nil)

func (c *QueryCache) Get(ctx context.Context, q *query.Query, limit int) (*executor.SearchResult, bool) {
	key := c.buildKey(q, limit)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", q.Raw, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, q *query.Query, limit int, result *executor.SearchResult) {
	key := c.buildKey(q, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for q or computes, stores and
// returns it. The boolean reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	q *query.Query,
	limit int,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, q, limit); ok {
		return result, true, nil
	}
	key := c.buildKey(q, limit)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, q, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate drops every key of this cache's scope.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, c.scopePrefix()+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "scope", c.scope, "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) scopePrefix() string {
	return keyPrefix + c.scope + ":"
}

// buildKey hashes the analyzed query, so raw texts that analyze identically
// share an entry.
func (c *QueryCache) buildKey(q *query.Query, limit int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|slop=%d|edits=%d|prefix=%d|exp=%d|limit=%d|",
		q.Kind, q.Params.Slop, q.Params.MaxEdits, q.Params.PrefixLength, q.Params.MaxExpansions, limit)
	for _, t := range q.Terms {
		fmt.Fprintf(&sb, "%s@%d,", t.Text, t.Offset)
	}
	hash := sha256.Sum256([]byte(sb.String()))
	return fmt.Sprintf("%s%x", c.scopePrefix(), hash[:16])
}
