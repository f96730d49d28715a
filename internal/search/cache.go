package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/Thomaz-Klifson/car-search/internal/cache"
	"github.com/Thomaz-Klifson/car-search/internal/catalog"
	"github.com/Thomaz-Klifson/car-search/internal/observability"
)

// CacheConfig configures result caching.
type CacheConfig struct {
	// TTL is how long a cached result stays valid
	TTL time.Duration
	// KeyPrefix namespaces result keys
	KeyPrefix string
	// Enabled controls whether caching is active
	Enabled bool
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:       10 * time.Minute,
		KeyPrefix: "search:",
		Enabled:   true,
	}
}

// CachedExecutor caches search and similarity results keyed by a hash of the
// request. Cache failures fall through to the wrapped executor.
type CachedExecutor struct {
	next   Executor
	client cache.Client
	logger *observability.Logger
	config CacheConfig
}

// NewCachedExecutor wraps next with a result cache.
func NewCachedExecutor(next Executor, client cache.Client, logger *observability.Logger, config CacheConfig) *CachedExecutor {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "search:"
	}
	if config.TTL == 0 {
		config.TTL = 10 * time.Minute
	}
	if logger == nil {
		logger = observability.Nop()
	}

	return &CachedExecutor{
		next:   next,
		client: client,
		logger: logger,
		config: config,
	}
}

func (e *CachedExecutor) Search(ctx context.Context, criteria catalog.Criteria) catalog.SearchResult {
	key := e.key("cars", criteria)

	var result catalog.SearchResult
	if e.get(ctx, key, &result) {
		return result
	}

	result = e.next.Search(ctx, criteria)
	e.set(ctx, key, result)
	return result
}

func (e *CachedExecutor) Similar(ctx context.Context, req catalog.SimilarRequest) catalog.SimilarityResult {
	key := e.key("similar", req)

	var result catalog.SimilarityResult
	if e.get(ctx, key, &result) {
		return result
	}

	result = e.next.Similar(ctx, req)
	e.set(ctx, key, result)
	return result
}

// Invalidate drops every cached result.
func (e *CachedExecutor) Invalidate(ctx context.Context) error {
	if !e.enabled() {
		return nil
	}
	return e.client.DeleteByPrefix(ctx, e.config.KeyPrefix)
}

func (e *CachedExecutor) enabled() bool {
	return e.config.Enabled && e.client != nil
}

// key hashes the JSON form of req. Struct field order makes the encoding
// deterministic.
func (e *CachedExecutor) key(kind string, req interface{}) string {
	data, _ := json.Marshal(req)
	hash := sha256.Sum256(data)
	return cache.Key(e.config.KeyPrefix+kind, hex.EncodeToString(hash[:16]))
}

func (e *CachedExecutor) get(ctx context.Context, key string, out interface{}) bool {
	if !e.enabled() {
		return false
	}

	data, err := e.client.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			e.logger.Debug().Err(err).Str("key", key).Msg("Cache get error")
		}
		return false
	}

	if err := json.Unmarshal(data, out); err != nil {
		e.logger.Warn().Err(err).Str("key", key).Msg("Failed to unmarshal cached result")
		return false
	}

	e.logger.Debug().Str("key", key).Msg("Cache hit")
	return true
}

func (e *CachedExecutor) set(ctx context.Context, key string, v interface{}) {
	if !e.enabled() {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		e.logger.Warn().Err(err).Str("key", key).Msg("Failed to marshal result")
		return
	}

	if err := e.client.Set(ctx, key, data, e.config.TTL); err != nil {
		e.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache result")
	}
}
