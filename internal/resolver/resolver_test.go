package resolver

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pp-server/pp-server/internal/domain"
)

func itoa(i int32) string { return strconv.FormatInt(int64(i), 10) }

type fakeCache struct {
	entries map[string]domain.MetadataCacheEntry
	puts    int
}

func newFakeCache() *fakeCache { return &fakeCache{entries: map[string]domain.MetadataCacheEntry{}} }

func (c *fakeCache) Get(md5 string, bid *int32) (domain.MetadataCacheEntry, bool) {
	e, ok := c.entries[md5]
	return e, ok
}
func (c *fakeCache) Put(md5 string, bid *int32, beatmap *domain.BeatmapMetadata) {
	c.puts++
	c.entries[md5] = domain.MetadataCacheEntry{Beatmap: beatmap, CreateTime: time.Now()}
}
func (c *fakeCache) Len() int { return len(c.entries) }

type fakeClients struct {
	calls   int
	results []domain.BeatmapMetadata
	err     error
}

func (f *fakeClients) GetJSON(ctx context.Context, url string, query map[string]string, out any) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	ptr := out.(*[]apiBeatmapDTO)
	for _, m := range f.results {
		*ptr = append(*ptr, apiBeatmapDTO{
			BeatmapID:    itoa(m.ID),
			BeatmapsetID: itoa(m.SetID),
			FileMD5:      m.Md5,
			Title:        m.Title,
			Artist:       m.Artist,
			Version:      m.DiffName,
			Creator:      m.Mapper,
			CreatorID:    itoa(m.MapperID),
			Approved:     itoa(m.RankStatus),
			Mode:         itoa(int32(m.Mode)),
			TotalLength:  itoa(m.Length),
			HitLength:    itoa(m.LengthDrain),
		})
	}
	return nil
}
func (f *fakeClients) Reload(newKeys []string) int                           { return 0 }
func (f *fakeClients) TestAll(ctx context.Context) []domain.ClientProbeResult { return nil }
func (f *fakeClients) Size() int                                             { return 0 }

func TestResolveFreshCacheHitDoesNotCallUpstream(t *testing.T) {
	cache := newFakeCache()
	meta := &domain.BeatmapMetadata{Md5: "abc", UpdateTime: time.Now()}
	cache.entries["abc"] = domain.MetadataCacheEntry{Beatmap: meta, CreateTime: time.Now()}

	clients := &fakeClients{}
	r := New(cache, nil, clients, 3600, zerolog.Nop())

	got, err := r.Resolve(context.Background(), "abc", nil, nil, "", true)
	require.NoError(t, err)
	assert.Same(t, meta, got)
	assert.Equal(t, 0, clients.calls)
}

func TestResolveExpiredCacheFallsThroughToUpstream(t *testing.T) {
	cache := newFakeCache()
	stale := &domain.BeatmapMetadata{Md5: "abc", UpdateTime: time.Now().Add(-1 * time.Hour)}
	cache.entries["abc"] = domain.MetadataCacheEntry{Beatmap: stale, CreateTime: time.Now().Add(-1 * time.Hour)}

	fresh := domain.BeatmapMetadata{ID: 1, Md5: "abc", Title: "Fresh"}
	clients := &fakeClients{results: []domain.BeatmapMetadata{fresh}}
	r := New(cache, nil, clients, 60, zerolog.Nop())

	got, err := r.Resolve(context.Background(), "abc", nil, nil, "", true)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Fresh", got.Title)
	assert.Equal(t, 1, clients.calls)
}

func TestResolveUpstreamFailureReturnsStaleBackup(t *testing.T) {
	cache := newFakeCache()
	stale := &domain.BeatmapMetadata{Md5: "abc", UpdateTime: time.Now().Add(-1 * time.Hour)}
	cache.entries["abc"] = domain.MetadataCacheEntry{Beatmap: stale, CreateTime: time.Now().Add(-1 * time.Hour)}

	clients := &fakeClients{err: domain.NewApiError(domain.ErrRequestFailed, "network down")}
	r := New(cache, nil, clients, 60, zerolog.Nop())

	got, err := r.Resolve(context.Background(), "abc", nil, nil, "", true)
	require.NoError(t, err)
	assert.Same(t, stale, got)
}

func TestResolveRequestErrorNeverPollutesNegativeCache(t *testing.T) {
	cache := newFakeCache()
	clients := &fakeClients{err: domain.NewApiError(domain.ErrRequestFailed, "network down")}
	r := New(cache, nil, clients, 60, zerolog.Nop())

	_, err := r.Resolve(context.Background(), "missing", nil, nil, "", true)
	require.NoError(t, err)
	assert.Equal(t, 0, cache.puts, "a RequestError must never write a negative-cache entry")
}
