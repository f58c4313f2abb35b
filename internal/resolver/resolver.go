// Package resolver implements the metadata resolver (C5): the central
// cache -> durable store -> upstream API orchestration, with freshness,
// stale-fallback, and negative-cache policy.
package resolver

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pp-server/pp-server/internal/domain"
)

// Resolver orchestrates C4 (in-memory cache), an optional durable
// MetadataStore, and the upstream ClientPool. Grounded on
// beatmap.rs::Beatmap::get's five ordered steps.
type Resolver struct {
	cache   domain.MetadataCache
	store   domain.MetadataStore // nil in the standalone profile
	clients domain.ClientPool

	ttlSeconds int64
	log        zerolog.Logger
}

// New builds a Resolver. store may be nil when no durable profile is
// configured.
func New(cache domain.MetadataCache, store domain.MetadataStore, clients domain.ClientPool, ttlSeconds int64, log zerolog.Logger) *Resolver {
	return &Resolver{
		cache:      cache,
		store:      store,
		clients:    clients,
		ttlSeconds: ttlSeconds,
		log:        log.With().Str("component", "resolver").Logger(),
	}
}

// Resolve implements the five-step ordered algorithm. md5 may be empty and
// bid/sid may be nil; fileName is only consulted when sid is provided.
func (r *Resolver) Resolve(ctx context.Context, md5 string, bid, sid *int32, fileName string, tryFromCache bool) (*domain.BeatmapMetadata, error) {
	var backup *domain.BeatmapMetadata

	if tryFromCache {
		if entry, ok := r.cache.Get(md5, bid); ok {
			if !entry.IsExpired(r.ttlSeconds) {
				r.log.Info().Str("md5", md5).Msg("resolved from cache")
				return entry.Beatmap, nil
			}
			r.log.Debug().Str("md5", md5).Msg("cache hit but expired")
			backup = entry.Beatmap
		}

		if r.store != nil {
			if b, err := r.lookupStore(ctx, md5, bid); err == nil && b != nil {
				if !b.IsExpired(r.ttlSeconds) {
					r.cache.Put(b.Md5, &b.ID, b)
					return b, nil
				}
				r.log.Debug().Str("md5", md5).Msg("store hit but expired")
				backup = b
			}
		}
	}

	// Step 2: upstream by hash.
	if md5 != "" {
		if b, err := r.tryUpstream(ctx, domain.NewMd5Key(md5), ""); err == nil {
			r.cache.Put(b.Md5, &b.ID, b)
			r.writeThroughStore(ctx, *b)
			return b, nil
		} else if !domain.IsRequestError(err) {
			r.cache.Put(md5, bid, nil)
		}
	}

	// Step 3: upstream by bid.
	if bid != nil {
		if b, err := r.tryUpstream(ctx, domain.NewBidKey(*bid), ""); err == nil {
			r.cache.Put(b.Md5, &b.ID, b)
			r.writeThroughStore(ctx, *b)
			return b, nil
		} else if !domain.IsRequestError(err) {
			r.cache.Put(md5, bid, nil)
		}
	}

	// Step 4: upstream by set id + filename.
	if sid != nil && fileName != "" {
		if b, err := r.tryUpstream(ctx, domain.NewSidKey(*sid), fileName); err == nil {
			key := md5
			if key == "" {
				key = b.Md5
			}
			r.cache.Put(key, &b.ID, b)
			r.writeThroughStore(ctx, *b)
			return b, nil
		} else if !domain.IsRequestError(err) {
			r.cache.Put(md5, bid, nil)
		}
	}

	if backup == nil {
		r.log.Info().Str("md5", md5).Msg("failed to get beatmap anyway")
	} else {
		r.log.Info().Str("md5", md5).Msg("returning stale backup beatmap, failed to refresh")
	}
	return backup, nil
}

func (r *Resolver) lookupStore(ctx context.Context, md5 string, bid *int32) (*domain.BeatmapMetadata, error) {
	if md5 != "" {
		if b, err := r.store.FindByKey(ctx, domain.NewMd5Key(md5)); err == nil && b != nil {
			return b, nil
		}
	}
	if bid != nil {
		if b, err := r.store.FindByKey(ctx, domain.NewBidKey(*bid)); err == nil && b != nil {
			return b, nil
		}
	}
	return nil, nil
}

func (r *Resolver) writeThroughStore(ctx context.Context, b domain.BeatmapMetadata) {
	if r.store == nil {
		return
	}
	if err := r.store.Upsert(ctx, b); err != nil {
		r.log.Warn().Err(err).Str("md5", b.Md5).Msg("failed to write beatmap through to durable store")
	}
}

// tryUpstream issues one GetJSON and returns the first matching beatmap,
// selecting by synthesized filename for sid lookups.
func (r *Resolver) tryUpstream(ctx context.Context, key domain.Key, wantFileName string) (*domain.BeatmapMetadata, error) {
	var dtos []apiBeatmapDTO
	query := map[string]string{key.QueryParam(): key.Value()}
	if err := r.clients.GetJSON(ctx, getBeatmapsURL, query, &dtos); err != nil {
		return nil, err
	}
	if len(dtos) == 0 {
		return nil, domain.NewApiError(domain.ErrParseFailed, "empty response")
	}

	if wantFileName == "" {
		b := dtos[0].toMetadata()
		return &b, nil
	}

	want := domain.SafeFileName(wantFileName)
	for _, d := range dtos {
		b := d.toMetadata()
		if b.FileName() == want {
			return &b, nil
		}
	}
	return nil, domain.NewApiError(domain.ErrParseFailed, "no difficulty in set matches filename")
}
