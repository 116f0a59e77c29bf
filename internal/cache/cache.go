package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores listing page snapshots between runs
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// ListingKey derives the cache key for a source's listing page.
// The strategy is part of the key because rendered and static HTML differ.
func ListingKey(strategy, listingURL string) string {
	hash := sha256.Sum256([]byte(strategy + "\x00" + listingURL))
	return "reportwatch:listing:v1:" + hex.EncodeToString(hash[:])
}
