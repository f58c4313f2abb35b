package metadatacache

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pp-server/pp-server/internal/domain"
)

func TestPutGetByMd5AndBid(t *testing.T) {
	c := New(100, zerolog.Nop())
	bid := int32(42)
	meta := &domain.BeatmapMetadata{ID: bid, Md5: "abc"}

	c.Put("abc", &bid, meta)

	e, ok := c.Get("abc", nil)
	require.True(t, ok)
	assert.Equal(t, meta, e.Beatmap)

	e, ok = c.Get("", &bid)
	require.True(t, ok)
	assert.Equal(t, meta, e.Beatmap)

	assert.Equal(t, 1, c.Len())
}

func TestPutNegativeCacheEntry(t *testing.T) {
	c := New(100, zerolog.Nop())
	c.Put("missing", nil, nil)

	e, ok := c.Get("missing", nil)
	require.True(t, ok)
	assert.Nil(t, e.Beatmap)
}

func TestPutNoKeysIsNoOp(t *testing.T) {
	c := New(100, zerolog.Nop())
	c.Put("", nil, nil)
	assert.Equal(t, 0, c.Len())
}

func TestPutDropsOnceOverMax(t *testing.T) {
	c := New(1, zerolog.Nop())
	c.Put("a", nil, &domain.BeatmapMetadata{Md5: "a"})
	c.Put("b", nil, &domain.BeatmapMetadata{Md5: "b"})
	c.Put("c", nil, &domain.BeatmapMetadata{Md5: "c"})

	_, ok := c.Get("a", nil)
	assert.True(t, ok, "first write under the bound should stick")

	assert.Equal(t, 2, c.Len(), "length bound check runs before incrementing, so exactly one write over max still lands")
}

func TestGetMissReturnsFalse(t *testing.T) {
	c := New(100, zerolog.Nop())
	_, ok := c.Get("nope", nil)
	assert.False(t, ok)
}
