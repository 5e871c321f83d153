package cache

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/koiX69420/scanner-sub000/pkg/config"
	"github.com/koiX69420/scanner-sub000/pkg/scanner"
)

// Cache memoizes analysis reports under "mint_mode" for a short TTL so a
// burst of identical requests costs one provider round-trip. Entries expire
// lazily on read and are also swept periodically (wired to cron in main).
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
}

type entry struct {
	report  *scanner.Report
	savedAt time.Time
}

func New(ttl time.Duration) *Cache {
	return &Cache{entries: make(map[string]entry), ttl: ttl}
}

func Key(mint string, mode config.Mode) string {
	return mint + "_" + string(mode)
}

// Get returns the cached report if it is still fresh. Stale entries are
// evicted on the spot.
func (c *Cache) Get(key string) (*scanner.Report, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Since(e.savedAt) > c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.report, true
}

func (c *Cache) Put(key string, r *scanner.Report) {
	c.mu.Lock()
	c.entries[key] = entry{report: r, savedAt: time.Now()}
	c.mu.Unlock()
}

// Sweep drops every expired entry. Meant to run on a fixed schedule.
func (c *Cache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if time.Since(e.savedAt) > c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Int("remaining", len(c.entries)).Msg("cache swept")
	}
}

// Len reports the live entry count, counting stale-but-unswept entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
