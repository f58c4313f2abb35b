// Package domain defines the core business models and interfaces (ports) for hexagonal architecture.
// This layer is framework-agnostic and contains no external dependencies.
// It defines contracts that adapters must implement, following the Dependency Inversion Principle.
package domain

import "time"

// Mode is the rhythm-game mode a beatmap/score belongs to.
type Mode uint8

const (
	ModeStd Mode = iota
	ModeTaiko
	ModeCatch
	ModeMania
)

// ModeAny is the sentinel passed to the calculator port when no mode was
// supplied on the request; it routes to the calculator's generic path.
// The original used 5 (out of range of the 0..=3 Mode enum) for this; kept
// bit-compatible here (spec §9 open question, resolved in DESIGN.md).
const ModeAny uint8 = 5

// RankStatusInServer is a closed variant set derived from the upstream
// integer rank_status by a fixed mapping.
type RankStatusInServer int

const (
	RankPending   RankStatusInServer = 0
	RankRanked    RankStatusInServer = 1
	RankApproved  RankStatusInServer = 2
	RankQualified RankStatusInServer = 3
	RankLoved     RankStatusInServer = 4
	RankUnknown   RankStatusInServer = -1
)

// RankStatusFromAPIRankStatus maps an upstream rank_status integer to the
// closed RankStatusInServer set. Total function: every int32 maps somewhere.
func RankStatusFromAPIRankStatus(i int32) RankStatusInServer {
	switch i {
	case -2, -1, 0:
		return RankPending
	case 1:
		return RankRanked
	case 2:
		return RankApproved
	case 3:
		return RankQualified
	case 4:
		return RankLoved
	default:
		return RankUnknown
	}
}

// BeatmapMetadata is the normalized descriptor of one difficulty, mapped
// 1:1 onto the `beatmaps.maps` table.
type BeatmapMetadata struct {
	Server          string
	ID              int32
	SetID           int32
	Md5             string // lowercase 32-hex content hash
	Title           string
	Artist          string
	DiffName        string
	Mapper          string
	MapperID        int32
	RankStatus      int32
	Mode            Mode
	Length          int32
	LengthDrain     int32
	MaxCombo        *int32
	FixedRankStatus bool // true iff RankStatus in {1,2}
	LastUpdate      *time.Time
	UpdateTime      time.Time
}

// NewBeatmapMetadata derives FixedRankStatus and stamps UpdateTime, matching
// the `impl From<BeatmapFromApi> for Beatmap` conversion in the original.
func NewBeatmapMetadata(id, setID int32, md5, title, artist, diffName, mapper string, mapperID, rankStatus int32, mode Mode, length, lengthDrain int32, maxCombo *int32, lastUpdate *time.Time) BeatmapMetadata {
	return BeatmapMetadata{
		Server:          "ppy",
		ID:              id,
		SetID:           setID,
		Md5:             md5,
		Title:           title,
		Artist:          artist,
		DiffName:        diffName,
		Mapper:          mapper,
		MapperID:        mapperID,
		RankStatus:      rankStatus,
		Mode:            mode,
		Length:          length,
		LengthDrain:     lengthDrain,
		MaxCombo:        maxCombo,
		FixedRankStatus: rankStatus == 1 || rankStatus == 2,
		LastUpdate:      lastUpdate,
		UpdateTime:      time.Now(),
	}
}

// IsExpired reports whether the record is stale relative to expireSeconds.
// A FixedRankStatus record never expires.
func (b BeatmapMetadata) IsExpired(expireSeconds int64) bool {
	if b.FixedRankStatus {
		return false
	}
	return time.Since(b.UpdateTime) > time.Duration(expireSeconds)*time.Second
}

// IsUnranked, IsRanked, IsQualified mirror beatmap.rs's helpers exactly.
func (b BeatmapMetadata) IsUnranked() bool  { return b.RankStatus < 1 }
func (b BeatmapMetadata) IsRanked() bool    { return b.RankStatus > 0 && b.RankStatus != 4 }
func (b BeatmapMetadata) IsQualified() bool { return b.RankStatus == 3 }

// RankStatusInServer derives the closed variant from RankStatus.
func (b BeatmapMetadata) RankStatusInServer() RankStatusInServer {
	return RankStatusFromAPIRankStatus(b.RankStatus)
}

// FileName reproduces the synthesized filename used for sid+filename
// matching, sanitized with the same narrow character set as the original.
func (b BeatmapMetadata) FileName() string {
	raw := b.Artist + " - " + b.Title + " (" + b.Mapper + ") [" + b.DiffName + "].osu"
	return SafeFileName(raw)
}

// MetadataCacheEntry wraps a possibly-absent metadata record (a "negative
// cache" entry, meaning: confirmed not-submitted) with its creation time.
type MetadataCacheEntry struct {
	Beatmap    *BeatmapMetadata // nil => negative cache entry ("not submitted")
	CreateTime time.Time
}

// IsExpired mirrors beatmap.rs's cache-entry freshness check: a positive
// entry defers to the beatmap's own FixedRankStatus/UpdateTime rule, a
// negative entry expires purely on elapsed time since CreateTime.
func (e MetadataCacheEntry) IsExpired(expireSeconds int64) bool {
	if e.Beatmap != nil {
		return e.Beatmap.IsExpired(expireSeconds)
	}
	return time.Since(e.CreateTime) > time.Duration(expireSeconds)*time.Second
}

// ParsedBeatmap is the opaque handle produced by the external beatmap
// difficulty parser. Only the Parser and Calculator ports need to know its
// concrete shape; cache/resolver layers pass it through untouched.
type ParsedBeatmap any

// KeyKind tags a Key's active variant.
type KeyKind int

const (
	KeyMd5 KeyKind = iota
	KeyBid
	KeySid
)

// Key is the tagged union the resolver and API client use to address a
// beatmap by exactly one of md5/bid/sid.
type Key struct {
	Kind KeyKind
	Md5  string
	Int  int32
}

func NewMd5Key(md5 string) Key { return Key{Kind: KeyMd5, Md5: md5} }
func NewBidKey(bid int32) Key  { return Key{Kind: KeyBid, Int: bid} }
func NewSidKey(sid int32) Key  { return Key{Kind: KeySid, Int: sid} }

// Column is the metadata-store column name this key looks up by.
func (k Key) Column() string {
	switch k.Kind {
	case KeyMd5:
		return "md5"
	case KeyBid:
		return "id"
	case KeySid:
		return "set_id"
	default:
		return ""
	}
}

// QueryParam is the upstream osu! API query parameter name for this key.
func (k Key) QueryParam() string {
	switch k.Kind {
	case KeyMd5:
		return "h"
	case KeyBid:
		return "b"
	case KeySid:
		return "s"
	default:
		return ""
	}
}

// Value is the string form of whichever field is active.
func (k Key) Value() string {
	if k.Kind == KeyMd5 {
		return k.Md5
	}
	return itoa32(k.Int)
}

func itoa32(i int32) string {
	neg := i < 0
	if neg {
		i = -i
	}
	if i == 0 {
		return "0"
	}
	var buf [12]byte
	p := len(buf)
	for i > 0 {
		p--
		buf[p] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		p--
		buf[p] = '-'
	}
	return string(buf[p:])
}

// CalcParams is the score-parameter shape shared by the /api/calc query
// string and the durable queue's CalcParams tail.
type CalcParams struct {
	Md5       string
	Bid       *int32
	Sid       *int32
	FileName  string
	Mode      *uint8
	Mods      *uint32
	N50       *int
	N100      *int
	N300      *int
	Katu      *int
	Miss      *int
	Combo     *int
	PassedObj *int
	Acc       *float64

	// Accepted on the richer CalcData profile but inert beyond AccList (spec
	// §9 open question, resolved in DESIGN.md): Simple and NoMiss are parsed
	// and carried but not consumed by any core branch yet.
	Simple  *bool
	AccList *bool
	NoMiss  *bool
}

// ModeOrAny returns the mode to hand to the calculator port: the explicit
// mode if set, otherwise ModeAny.
func (c CalcParams) ModeOrAny() uint8 {
	if c.Mode != nil {
		return *c.Mode
	}
	return ModeAny
}

// CalcRaw is the per-skill breakdown returned alongside pp/stars.
type CalcRaw struct {
	Aim   float64
	Spd   float64
	Str   float64
	Acc   float64
	Total float64
}

// CalcResult is the calculator port's output shape.
type CalcResult struct {
	PP    float64
	Stars float64
	Raw   CalcRaw
}

// ClientProbeResult is one row of the API client pool's TestAll probe.
type ClientProbeResult struct {
	APIKey  string
	DelayMS int64
	Status  bool
	Error   string
}

// QueueEntry is one durable-queue recalculation task:
// key `calc:<table>:<score_id>:<player_id>`, value `<try_count>:<params>`.
type QueueEntry struct {
	Key      string
	Table    string
	ScoreID  int64
	PlayerID int32
	TryCount int
	Params   CalcParams
}

// UpdateUserTask is a coalesced per-tick player-stats refresh notification
// POSTed to the sibling service.
type UpdateUserTask struct {
	PlayerID int32 `json:"player_id"`
	Mode     uint8 `json:"mode"`
	Recalc   bool  `json:"recalc"`
}
