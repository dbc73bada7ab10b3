package catalogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"
)

// Cached memoises lookups of another catalogue in an in-process bigcache.
// Misses, including ErrNotFound, are not cached.
type Cached struct {
	next    Catalogue
	cache   *bigcache.BigCache
	logger  *zap.Logger
	observe func(outcome string)
}

// Lookup outcomes passed to the observer.
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)

// NewCached wraps next with a cache whose entries expire after ttl. observe,
// when non-nil, is called with the outcome of every lookup.
func NewCached(next Catalogue, ttl time.Duration, maxMB int, logger *zap.Logger, observe func(outcome string)) (*Cached, error) {
	if next == nil {
		return nil, errors.New("cached catalogue requires a backing catalogue")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	conf := bigcache.DefaultConfig(ttl)
	conf.Shards = 64
	conf.MaxEntriesInWindow = 10000
	conf.MaxEntrySize = 512
	conf.HardMaxCacheSize = maxMB
	conf.CleanWindow = ttl
	conf.Verbose = false

	cache, err := bigcache.New(context.Background(), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise catalogue cache: %w", err)
	}
	if observe == nil {
		observe = func(string) {}
	}
	return &Cached{next: next, cache: cache, logger: logger, observe: observe}, nil
}

func cacheKey(userID, ingredientID string) string {
	return userID + "/" + ingredientID
}

// Ingredient implements Catalogue.
func (c *Cached) Ingredient(ctx context.Context, userID, ingredientID string) (Ingredient, error) {
	key := cacheKey(userID, ingredientID)
	if data, err := c.cache.Get(key); err == nil {
		var ing Ingredient
		if err := json.Unmarshal(data, &ing); err == nil {
			c.observe(OutcomeHit)
			return ing, nil
		}
		c.logger.Warn("discarding unreadable cache entry",
			zap.String("op", "catalogue.Cached.Ingredient"),
			zap.String("key", key),
		)
	} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
		c.observe(OutcomeError)
		return Ingredient{}, fmt.Errorf("catalogue cache lookup failed: %w", err)
	}

	ing, err := c.next.Ingredient(ctx, userID, ingredientID)
	if err != nil {
		c.observe(OutcomeError)
		return Ingredient{}, err
	}
	c.observe(OutcomeMiss)
	data, err := json.Marshal(ing)
	if err != nil {
		return ing, nil
	}
	if err := c.cache.Set(key, data); err != nil {
		c.logger.Warn("failed to cache ingredient",
			zap.String("op", "catalogue.Cached.Ingredient"),
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return ing, nil
}

// Close releases the cache's background cleaner.
func (c *Cached) Close() error {
	return c.cache.Close()
}
