package resolver

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pp-server/pp-server/internal/domain"
)

// LocalStore is the subset of beatmapstore.Store the getter needs.
type LocalStore interface {
	Get(hash string) (domain.ParsedBeatmap, error)
	Write(raw []byte, hash string)
}

// BeatmapGetter combines C5 (this package's Resolver), C6 (LocalStore), and
// C2 (domain.Downloader) into the single "resolve metadata, then get the
// parsed beatmap" operation both the calc handler and the recalc worker
// need. Grounded on calculator.rs's get_beatmap_from_local /
// get_beatmap_from_api pair, unified behind one call the way
// server.rs::start_auto_pp_recalculate invokes `calculator::get_beatmap`.
type BeatmapGetter struct {
	resolver   *Resolver
	store      LocalStore
	downloader domain.Downloader
	log        zerolog.Logger
}

// NewBeatmapGetter builds a BeatmapGetter.
func NewBeatmapGetter(r *Resolver, store LocalStore, downloader domain.Downloader, log zerolog.Logger) *BeatmapGetter {
	return &BeatmapGetter{
		resolver:   r,
		store:      store,
		downloader: downloader,
		log:        log.With().Str("component", "beatmap_getter").Logger(),
	}
}

// Get resolves metadata for the given key set, then returns the parsed
// beatmap: from the local store if present, else downloaded and written to
// the local store. A downloaded beatmap is not put into the parsed-beatmap
// cache; that happens on a later read from the local store.
func (g *BeatmapGetter) Get(ctx context.Context, md5 string, bid, sid *int32, fileName string) (domain.ParsedBeatmap, string, error) {
	meta, err := g.resolver.Resolve(ctx, md5, bid, sid, fileName, true)
	if err != nil {
		return nil, "", err
	}
	if meta == nil {
		return nil, "", domain.NewApiError(domain.ErrNotExists, "beatmap metadata not found")
	}

	if b, err := g.store.Get(meta.Md5); err == nil {
		return b, meta.Md5, nil
	}

	beatmap, hash, raw, err := g.downloader.Download(ctx, meta.ID)
	if err != nil {
		g.log.Warn().Err(err).Str("md5", meta.Md5).Msg("cannot get .osu file from osu!api")
		return nil, meta.Md5, err
	}
	g.store.Write(raw, hash)
	return beatmap, hash, nil
}
