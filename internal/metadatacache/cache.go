// Package metadatacache implements the resolver's first-tier, in-memory
// cache of beatmap metadata: a two-index (md5, bid) map with negative-cache
// support and an approximate size bound.
package metadatacache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pp-server/pp-server/internal/domain"
)

// Cache is a bounded, two-index in-memory cache of domain.MetadataCacheEntry,
// grounded on the original's BeatmapCaches (md5 map + bid map, one shared
// length counter checked before every insert).
type Cache struct {
	mu  sync.RWMutex
	md5 map[string]domain.MetadataCacheEntry
	bid map[int32]domain.MetadataCacheEntry

	length int64 // atomic, approximate: incremented once per Put call
	max    int64

	log zerolog.Logger
}

// New builds a Cache bounded to max entries (beatmap_cache_max in config).
func New(max int64, log zerolog.Logger) *Cache {
	return &Cache{
		md5: make(map[string]domain.MetadataCacheEntry, 200),
		bid: make(map[int32]domain.MetadataCacheEntry, 200),
		max: max,
		log: log.With().Str("component", "metadatacache").Logger(),
	}
}

// Get looks up by md5 first, then by bid, matching the original's
// get_beatmap lookup order.
func (c *Cache) Get(md5 string, bid *int32) (domain.MetadataCacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if md5 != "" {
		if e, ok := c.md5[md5]; ok {
			return e, true
		}
	}
	if bid != nil {
		if e, ok := c.bid[*bid]; ok {
			return e, true
		}
	}
	return domain.MetadataCacheEntry{}, false
}

// Put inserts an entry under whichever keys are non-empty/non-nil. beatmap
// may be nil, meaning "confirmed not submitted" (a negative cache write).
// Once the approximate size bound is exceeded, new writes are dropped —
// matching cache_beatmap's overflow behavior in the original (debug log, no
// insert, existing entries untouched).
func (c *Cache) Put(md5 string, bid *int32, beatmap *domain.BeatmapMetadata) {
	if md5 == "" && bid == nil {
		return
	}
	if atomic.LoadInt64(&c.length) > c.max {
		c.log.Debug().Msg("metadata cache exceeds max limit, dropping write")
		return
	}

	entry := domain.MetadataCacheEntry{Beatmap: beatmap, CreateTime: time.Now()}

	c.mu.Lock()
	if md5 != "" {
		c.md5[md5] = entry
	}
	if bid != nil {
		c.bid[*bid] = entry
	}
	c.mu.Unlock()

	atomic.AddInt64(&c.length, 1)
}

// Len reports the approximate number of Put calls accepted so far.
func (c *Cache) Len() int {
	return int(atomic.LoadInt64(&c.length))
}

var _ domain.MetadataCache = (*Cache)(nil)
