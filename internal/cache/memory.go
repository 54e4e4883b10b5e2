package cache

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"CrudAPI/internal/logger"
)

const memorySweepFreq = time.Minute

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero: no expiry
}

// Memory is a size-bounded in-process cache for single-instance setups.
type Memory struct {
	mu         sync.Mutex
	items      map[string]*memoryEntry
	versions   map[string]int64
	totalBytes int64
	maxBytes   int64
	lastSweep  time.Time
	now        func() time.Time
}

// NewMemory builds a cache holding at most maxBytes of values (0: no limit).
func NewMemory(maxBytes int64) *Memory {
	return &Memory{
		items:    make(map[string]*memoryEntry),
		versions: make(map[string]int64),
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.maybeSweepLocked(now)

	entry, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	if entry.expired(now) {
		c.removeLocked(key, entry)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (c *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.maybeSweepLocked(now)

	size := int64(len(key) + len(value))
	if c.maxBytes > 0 && size > c.maxBytes {
		logger.Warn("cache_item_too_large", map[string]any{
			"item_bytes": size,
			"max_bytes":  c.maxBytes,
		})
		return nil
	}
	if existing, ok := c.items[key]; ok {
		c.removeLocked(key, existing)
	}
	if c.maxBytes > 0 && c.totalBytes+size > c.maxBytes {
		logger.Warn("cache_memory_limit_exceeded", map[string]any{
			"item_bytes":  size,
			"total_bytes": c.totalBytes,
			"max_bytes":   c.maxBytes,
		})
		logMemoryPressure()
		return nil
	}

	entry := &memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	c.items[key] = entry
	c.totalBytes += size
	return nil
}

func (c *Memory) Version(_ context.Context, resource string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[resource], nil
}

// Bump also drops the entries of resource, they can no longer be hit.
func (c *Memory) Bump(_ context.Context, resource string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[resource]++
	prefix := "crud:" + resource + ":"
	for key, entry := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.removeLocked(key, entry)
		}
	}
	return nil
}

// Len returns the number of live entries.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

func (c *Memory) removeLocked(key string, entry *memoryEntry) {
	delete(c.items, key)
	c.totalBytes -= int64(len(key) + len(entry.value))
}

func (c *Memory) maybeSweepLocked(now time.Time) {
	if !c.lastSweep.IsZero() && now.Sub(c.lastSweep) < memorySweepFreq {
		return
	}
	for key, entry := range c.items {
		if entry.expired(now) {
			c.removeLocked(key, entry)
		}
	}
	c.lastSweep = now
}

func logMemoryPressure() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	logger.Error("cache_memory_pressure", map[string]any{
		"alloc_bytes": stats.Alloc,
		"heap_inuse":  stats.HeapInuse,
	})
}
