package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations. The pipeline is
// correct without it; it avoids re-parsing rule documents across runs
// inside one hosting process.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetRuleIndex retrieves a cached parsed rule document keyed by
	// the document fingerprint.
	GetRuleIndex(ctx context.Context, fingerprint string) (*RegionRuleSet, error)

	// SetRuleIndex caches a parsed rule document.
	SetRuleIndex(ctx context.Context, fingerprint string, rules *RegionRuleSet, ttl time.Duration) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
