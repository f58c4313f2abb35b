// Package beatmapcache implements the resolver's second cache tier: a
// hash-keyed store of parsed beatmap handles (ParsedBeatmap), bounded and
// reaped on a TTL by a background goroutine.
package beatmapcache

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pp-server/pp-server/internal/domain"
)

type entry struct {
	beatmap domain.ParsedBeatmap
	time    time.Time
}

// Cache is grounded on the original's pp_beatmap_cache: a single
// hash-keyed map bounded by a max-size check performed before insert.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	max     int

	log zerolog.Logger
}

// New builds a Cache bounded to max entries (beatmap_cache_max in config).
func New(max int, log zerolog.Logger) *Cache {
	return &Cache{
		entries: make(map[string]entry, 200),
		max:     max,
		log:     log.With().Str("component", "beatmapcache").Logger(),
	}
}

// Get returns the cached parsed handle for md5, if present.
func (c *Cache) Get(md5 string) (domain.ParsedBeatmap, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[md5]
	if !ok {
		return nil, false
	}
	return e.beatmap, true
}

// Put inserts beatmap under md5. Overflow is a silent drop (debug-logged),
// matching cache_pp_beatmap's overflow behavior.
func (c *Cache) Put(md5 string, beatmap domain.ParsedBeatmap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.max {
		c.log.Debug().Msg("beatmap cache exceeds max limit, dropping write")
		return
	}
	c.entries[md5] = entry{beatmap: beatmap, time: time.Now()}
}

// Len reports the current entry count.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reap removes every entry older than maxAge seconds, snapshotting the
// candidate keys under a read lock and releasing it before taking the write
// lock, matching start_auto_cache_clean's two-phase approach.
func (c *Cache) Reap(maxAge int64) int {
	cutoff := time.Duration(maxAge) * time.Second

	c.mu.RLock()
	stale := make([]string, 0)
	now := time.Now()
	for k, e := range c.entries {
		if now.Sub(e.time) > cutoff {
			stale = append(stale, k)
		}
	}
	c.mu.RUnlock()

	if len(stale) == 0 {
		return 0
	}

	c.mu.Lock()
	for _, k := range stale {
		delete(c.entries, k)
	}
	c.mu.Unlock()

	return len(stale)
}

// Clear empties the cache outright, backing the debug-gated
// GET /clear_cache endpoint from spec §6.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry, 200)
}

var _ domain.BeatmapCache = (*Cache)(nil)
