// Package cache holds finished analysis results under a time-to-live policy.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ibeckermayer/postlens/internal/apperr"
	"github.com/ibeckermayer/postlens/internal/types"
)

// ErrMiss is returned by a Store when the key has no entry
var ErrMiss = errors.New("cache miss")

// Entry is the envelope persisted per key
type Entry struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Payload     json.RawMessage `json:"payload"`
}

// Store is a keyed byte store. Entries are overwritten, never expired by the
// store itself.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Put(ctx context.Context, key string, entry Entry) error
}

// ResultCache applies the TTL rule on top of a Store. Store failures never
// reach the caller: a failed read is a miss and a failed write is logged.
type ResultCache struct {
	store   Store
	ttl     time.Duration
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
	lookups func(hit bool)
}

// New creates a result cache. timeout bounds each store call when positive.
func New(store Store, ttl, timeout time.Duration, logger *zap.Logger) *ResultCache {
	return &ResultCache{
		store:   store,
		ttl:     ttl,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock replaces the clock used for freshness checks
func (c *ResultCache) WithClock(now func() time.Time) *ResultCache {
	c.now = now
	return c
}

// OnLookup registers a hook called with the outcome of every Get
func (c *ResultCache) OnLookup(fn func(hit bool)) {
	c.lookups = fn
}

// Get returns the cached result for entityID if now - generated_at < TTL
func (c *ResultCache) Get(ctx context.Context, entityID string) (*types.AnalysisResult, bool) {
	result, ok := c.get(ctx, entityID)
	if c.lookups != nil {
		c.lookups(ok)
	}
	return result, ok
}

func (c *ResultCache) get(ctx context.Context, entityID string) (*types.AnalysisResult, bool) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	entry, err := c.store.Get(ctx, entityID)
	if errors.Is(err, ErrMiss) {
		return nil, false
	}
	if err != nil {
		c.warn("cache read failed, recomputing", entityID, err)
		return nil, false
	}

	if age := c.now().Sub(entry.GeneratedAt); age >= c.ttl {
		c.logger.Debug("cache entry stale", zap.String("entity_id", entityID), zap.Duration("age", age))
		return nil, false
	}

	var result types.AnalysisResult
	if err := json.Unmarshal(entry.Payload, &result); err != nil {
		c.warn("cache entry unreadable, recomputing", entityID, err)
		return nil, false
	}
	return &result, true
}

// Put overwrites the entry for result.EntityID, stamped with result.GeneratedAt
func (c *ResultCache) Put(ctx context.Context, result *types.AnalysisResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		c.warn("cache write failed", result.EntityID, err)
		return
	}

	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.store.Put(ctx, result.EntityID, Entry{GeneratedAt: result.GeneratedAt, Payload: payload}); err != nil {
		c.warn("cache write failed", result.EntityID, err)
	}
}

func (c *ResultCache) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return ctx, func() {}
}

func (c *ResultCache) warn(msg, entityID string, err error) {
	c.logger.Warn(msg,
		zap.String("entity_id", entityID),
		zap.Error(apperr.Wrap(apperr.CacheError, err, "entity %q", entityID)),
	)
}
