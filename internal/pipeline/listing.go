package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/reportwatch/internal/cache"
)

// CachedListing serves recent listing snapshots from a cache instead of
// fetching the page again
type CachedListing struct {
	inner    ListingSource
	cache    cache.Cache
	strategy string
	ttl      time.Duration
	logger   *zap.Logger
}

// NewCachedListing wraps inner; strategy keeps static and rendered snapshots apart
func NewCachedListing(inner ListingSource, c cache.Cache, strategy string, ttl time.Duration, logger *zap.Logger) *CachedListing {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedListing{
		inner:    inner,
		cache:    c,
		strategy: strategy,
		ttl:      ttl,
		logger:   logger,
	}
}

// Fetch returns a cached snapshot when present, otherwise fetches and stores one
func (c *CachedListing) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	key := cache.ListingKey(c.strategy, rawURL)

	if data, ok := c.cache.Get(key); ok {
		var cached FetchResult
		if err := json.Unmarshal(data, &cached); err == nil {
			cached.Meta.FromCache = true
			c.logger.Debug("listing cache hit", zap.String("url", rawURL))
			return &cached, nil
		}
		_ = c.cache.Delete(key)
	}

	result, err := c.inner.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		if err := c.cache.Set(key, data, c.ttl); err != nil {
			c.logger.Warn("listing cache write failed", zap.Error(err))
		}
	}

	return result, nil
}
