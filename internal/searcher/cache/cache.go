package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "search:"

// Store is the key-value backend of the cache. *redis.Client implements it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// PatternFlusher is implemented by stores that can drop keys by glob.
type PatternFlusher interface {
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type Option func(*QueryCache)

// WithIndexName scopes keys to one index so Invalidate can drop them
// without touching other indexes.
func WithIndexName(name string) Option {
	return func(c *QueryCache) { c.index = name }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *QueryCache) { c.metrics = m }
}

// WithTokenizer sets the Func used to normalize queries into keys. It
// should match the Func the executor uses.
func WithTokenizer(fn tokenizer.Func) Option {
	return func(c *QueryCache) { c.normalize = fn }
}

// QueryCache stores ranked results keyed by the normalized query. Store
// failures are logged and fall through to computing the result. A nil
// *QueryCache computes every query.
type QueryCache struct {
	store     Store
	ttl       time.Duration
	index     string
	normalize tokenizer.Func
	group     singleflight.Group
	metrics   *metrics.Metrics
	logger    *slog.Logger
	hits      atomic.Int64
	misses    atomic.Int64
}

func New(store Store, ttl time.Duration, opts ...Option) *QueryCache {
	c := &QueryCache{
		store:     store,
		ttl:       ttl,
		index:     "default",
		normalize: tokenizer.Normalize,
		logger:    logger.WithComponent("query-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *QueryCache) get(ctx context.Context, key string) ([]executor.Result, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
			c.countError()
		}
		return nil, false
	}
	var results []executor.Result
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.countError()
		return nil, false
	}
	return results, true
}

func (c *QueryCache) set(ctx context.Context, key string, results []executor.Result) {
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
		c.countError()
	}
}

// GetOrCompute returns the cached results for the request or runs fn and
// caches its results. Concurrent identical requests share one fn call. The
// bool reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	method, query string,
	k int,
	params map[string]float64,
	fn func() ([]executor.Result, error),
) ([]executor.Result, bool, error) {
	if c == nil {
		results, err := fn()
		return results, false, err
	}
	key := c.Key(method, query, k, params)
	if results, ok := c.get(ctx, key); ok {
		c.hit()
		c.logger.Debug("cache hit", "query", query, "key", key)
		return results, true, nil
	}
	c.miss()

	val, err, _ := c.group.Do(key, func() (any, error) {
		if results, ok := c.get(ctx, key); ok {
			return results, nil
		}
		results, err := fn()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, results)
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]executor.Result), false, nil
}

// Invalidate drops every cached result of this cache's index.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	flusher, ok := c.store.(PatternFlusher)
	if !ok {
		return 0, errors.New("cache store cannot flush by pattern")
	}
	deleted, err := flusher.FlushByPattern(ctx, c.prefix()+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "index", c.index, "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Key is "search:<index>:<method>:<hash>". Queries that normalize to the
// same multiset of terms share a key.
func (c *QueryCache) Key(method, query string, k int, params map[string]float64) string {
	raw := fmt.Sprintf("%s|k=%d|%s", c.normalizeQuery(query), k, formatParams(params))
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%s:%x", c.prefix(), method, hash[:16])
}

func (c *QueryCache) prefix() string {
	return keyPrefix + c.index + ":"
}

func (c *QueryCache) normalizeQuery(query string) string {
	terms := slices.Sorted(c.normalize(query))
	return strings.Join(terms, ",")
}

func formatParams(params map[string]float64) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	slices.Sort(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + strconv.FormatFloat(params[name], 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *QueryCache) countError() {
	if c.metrics != nil {
		c.metrics.CacheErrorsTotal.Inc()
	}
}
