// Package compiled memoizes compile passes per app id. The gateway
// compiles on every execution and bundle request, so repeat traffic for
// one app would otherwise redo schema checks and normalization each time.
package compiled

import (
	"crypto/sha256"
	"strings"
	"time"

	"appforge/internal/cache/memory"
	"appforge/internal/compile"
)

type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:        30 * time.Second,
		MaxEntries: 256,
	}
}

type cacheEntry struct {
	sum    [sha256.Size]byte
	result *compile.Result
}

// Cache wraps compile.Compile with an LRU+TTL memo keyed by app id. Each
// entry remembers a digest of the raw document it was compiled from; a
// digest mismatch recompiles, so a definition updated behind the cache's
// back never surfaces a stale result. The TTL bounds retention for apps
// that stop being requested.
type Cache struct {
	entries *memory.LRUTTL[string, cacheEntry]
}

func New(cfg CacheConfig) *Cache {
	def := DefaultCacheConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	return &Cache{entries: memory.NewLRUTTL[string, cacheEntry](cfg.MaxEntries, cfg.TTL)}
}

// Compile returns the memoized result for appID when the raw document is
// unchanged, compiling and remembering it otherwise.
func (c *Cache) Compile(appID string, raw []byte) *compile.Result {
	if c == nil {
		return compile.Compile(raw)
	}
	key := strings.TrimSpace(appID)
	sum := sha256.Sum256(raw)
	if ent, ok := c.entries.Get(key); ok && ent.sum == sum {
		return ent.result
	}
	res := compile.Compile(raw)
	c.entries.Set(key, cacheEntry{sum: sum, result: res})
	return res
}

// Invalidate drops the memo for appID. The app store calls this on every
// write.
func (c *Cache) Invalidate(appID string) {
	if c == nil {
		return
	}
	c.entries.Delete(strings.TrimSpace(appID))
}
