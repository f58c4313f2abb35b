package resolver

import (
	"strconv"
	"time"

	"github.com/pp-server/pp-server/internal/domain"
)

const (
	getBeatmapsURL = "https://old.ppy.sh/api/get_beatmaps"
	timeLayout     = "2006-01-02 15:04:05"
)

// apiBeatmapDTO mirrors the osu! API v1 get_beatmaps response shape: every
// numeric field is transmitted as a JSON string.
type apiBeatmapDTO struct {
	BeatmapID    string `json:"beatmap_id"`
	BeatmapsetID string `json:"beatmapset_id"`
	FileMD5      string `json:"file_md5"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Version      string `json:"version"`
	Creator      string `json:"creator"`
	CreatorID    string `json:"creator_id"`
	Approved     string `json:"approved"`
	Mode         string `json:"mode"`
	TotalLength  string `json:"total_length"`
	HitLength    string `json:"hit_length"`
	MaxCombo     string `json:"max_combo"`
	LastUpdate   string `json:"last_update"`
}

func parseInt32(s string) int32 {
	i, _ := strconv.ParseInt(s, 10, 32)
	return int32(i)
}

// toMetadata converts the wire DTO to the normalized domain type, matching
// `impl From<BeatmapFromApi> for Beatmap`.
func (d apiBeatmapDTO) toMetadata() domain.BeatmapMetadata {
	var maxCombo *int32
	if d.MaxCombo != "" {
		v := parseInt32(d.MaxCombo)
		maxCombo = &v
	}
	var lastUpdate *time.Time
	if d.LastUpdate != "" {
		if t, err := time.Parse(timeLayout, d.LastUpdate); err == nil {
			lastUpdate = &t
		}
	}

	return domain.NewBeatmapMetadata(
		parseInt32(d.BeatmapID),
		parseInt32(d.BeatmapsetID),
		d.FileMD5,
		d.Title,
		d.Artist,
		d.Version,
		d.Creator,
		parseInt32(d.CreatorID),
		parseInt32(d.Approved),
		domain.Mode(parseInt32(d.Mode)),
		parseInt32(d.TotalLength),
		parseInt32(d.HitLength),
		maxCombo,
		lastUpdate,
	)
}
