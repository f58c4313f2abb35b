package beatmapcache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Reaper periodically evicts entries from a Cache older than maxAgeSeconds.
// Grounded on start_auto_cache_clean's interval loop.
type Reaper struct {
	cache         *Cache
	interval      time.Duration
	maxAgeSeconds int64
	log           zerolog.Logger
}

// NewReaper builds a Reaper that sweeps cache every interval, evicting
// entries older than maxAgeSeconds.
func NewReaper(cache *Cache, interval time.Duration, maxAgeSeconds int64, log zerolog.Logger) *Reaper {
	return &Reaper{
		cache:         cache,
		interval:      interval,
		maxAgeSeconds: maxAgeSeconds,
		log:           log.With().Str("component", "beatmapcache.reaper").Logger(),
	}
}

// Run blocks, sweeping on every tick until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.log.Debug().Msg("cache reap started")
			start := time.Now()
			n := r.cache.Reap(r.maxAgeSeconds)
			if n > 0 {
				r.log.Debug().Int("evicted", n).Dur("elapsed", time.Since(start)).Msg("cache reap done")
			}
		}
	}
}
