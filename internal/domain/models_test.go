package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSafeFileNameStripsUnsafeChars(t *testing.T) {
	in := `a/b\c:d*e?f"g<h>i|j`
	assert.Equal(t, "abcdefghij", SafeFileName(in))
}

func TestSafeFileNameIdempotent(t *testing.T) {
	in := "Artist - Title (Mapper) [Diff].osu"
	once := SafeFileName(in)
	twice := SafeFileName(once)
	assert.Equal(t, once, twice)
}

func TestRankStatusFromAPIRankStatusIsTotal(t *testing.T) {
	cases := map[int32]RankStatusInServer{
		-2: RankPending,
		-1: RankPending,
		0:  RankPending,
		1:  RankRanked,
		2:  RankApproved,
		3:  RankQualified,
		4:  RankLoved,
		5:  RankUnknown,
		99: RankUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, RankStatusFromAPIRankStatus(in), "input %d", in)
	}
}

func TestBeatmapMetadataIsExpiredFixedRankStatusNeverExpires(t *testing.T) {
	b := BeatmapMetadata{
		RankStatus:      1,
		FixedRankStatus: true,
		UpdateTime:      time.Now().Add(-24 * time.Hour),
	}
	assert.False(t, b.IsExpired(1))
}

func TestBeatmapMetadataIsExpiredUnfixedRespectsTTL(t *testing.T) {
	b := BeatmapMetadata{
		RankStatus: 0,
		UpdateTime: time.Now().Add(-10 * time.Second),
	}
	assert.True(t, b.IsExpired(5))
	assert.False(t, b.IsExpired(3600))
}

func TestMetadataCacheEntryIsExpiredNegativeEntry(t *testing.T) {
	e := MetadataCacheEntry{Beatmap: nil, CreateTime: time.Now().Add(-10 * time.Second)}
	assert.True(t, e.IsExpired(5))
	assert.False(t, e.IsExpired(3600))
}

func TestKeyValueAndColumn(t *testing.T) {
	md5Key := NewMd5Key("abc123")
	assert.Equal(t, "md5", md5Key.Column())
	assert.Equal(t, "abc123", md5Key.Value())

	bidKey := NewBidKey(42)
	assert.Equal(t, "id", bidKey.Column())
	assert.Equal(t, "42", bidKey.Value())

	sidKey := NewSidKey(-7)
	assert.Equal(t, "set_id", sidKey.Column())
	assert.Equal(t, "-7", sidKey.Value())
}

func TestCalcParamsModeOrAnyDefaultsToSentinel(t *testing.T) {
	var p CalcParams
	assert.Equal(t, ModeAny, p.ModeOrAny())

	m := uint8(2)
	p.Mode = &m
	assert.Equal(t, uint8(2), p.ModeOrAny())
}
