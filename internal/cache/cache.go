// Package cache provides the byte cache used for search results, backed by
// Redis or an in-process map.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrCacheMiss indicates a cache miss.
var ErrCacheMiss = errors.New("cache miss")

// Client defines the cache interface.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Close() error
}

// MemoryClient is an in-process cache with per-entry expiry.
type MemoryClient struct {
	mu      sync.RWMutex
	data    map[string]memoryEntry
	maxSize int
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryClient creates a memory cache holding at most maxSize entries.
func NewMemoryClient(maxSize int) *MemoryClient {
	if maxSize <= 0 {
		maxSize = 10000
	}

	c := &MemoryClient{
		data:    make(map[string]memoryEntry),
		maxSize: maxSize,
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	go c.sweep(time.Minute)

	return c
}

// Get retrieves a value.
func (c *MemoryClient) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[key]
	if !ok || c.now().After(entry.expiresAt) {
		return nil, ErrCacheMiss
	}

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Set stores a value with a TTL, evicting the entry closest to expiry when full.
func (c *MemoryClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; !exists && len(c.data) >= c.maxSize {
		c.evictOldest()
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	c.data[key] = memoryEntry{value: stored, expiresAt: c.now().Add(ttl)}

	return nil
}

// Delete removes a value.
func (c *MemoryClient) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

// DeleteByPrefix removes every key starting with prefix.
func (c *MemoryClient) DeleteByPrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			delete(c.data, key)
		}
	}
	return nil
}

// Len reports the number of stored entries, expired or not.
func (c *MemoryClient) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Close stops the background sweeper.
func (c *MemoryClient) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

func (c *MemoryClient) evictOldest() {
	var oldestKey string
	var oldest time.Time

	for key, entry := range c.data {
		if oldestKey == "" || entry.expiresAt.Before(oldest) {
			oldestKey = key
			oldest = entry.expiresAt
		}
	}

	if oldestKey != "" {
		delete(c.data, oldestKey)
	}
}

func (c *MemoryClient) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for key, entry := range c.data {
				if now.After(entry.expiresAt) {
					delete(c.data, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Key joins key components with ":".
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
