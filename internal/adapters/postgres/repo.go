// Package postgres implements the durable metadata store (C5's second
// tier), score persistence, and player-stats recalculation against
// PostgreSQL, generalized from the teacher's pack-sizes repository to the
// beatmaps.maps / game_scores.* schema from spec §6.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pp-server/pp-server/internal/domain"
)

// Repository implements domain.MetadataStore, domain.ScoreStore, and
// domain.PlayerStatsStore using a pgxpool.Pool.
type Repository struct {
	db *pgxpool.Pool
}

// New creates a new PostgreSQL repository instance.
func New(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const selectColumns = `server, id, set_id, md5, title, artist, diff_name, mapper, mapper_id,
	rank_status, mode, length, length_drain, max_combo, fixed_rank_status, last_update, update_time`

// FindByKey looks up one beatmap by whichever Key variant is given, using
// the column the key itself names. Returns (nil, nil) on a clean miss,
// following the teacher's errors.Is(err, pgx.ErrNoRows) pattern.
func (r *Repository) FindByKey(ctx context.Context, key domain.Key) (*domain.BeatmapMetadata, error) {
	q := `SELECT ` + selectColumns + ` FROM beatmaps.maps WHERE "` + key.Column() + `" = $1 LIMIT 1`

	var b domain.BeatmapMetadata
	var mode int16
	err := r.db.QueryRow(ctx, q, key.Value()).Scan(
		&b.Server, &b.ID, &b.SetID, &b.Md5, &b.Title, &b.Artist, &b.DiffName, &b.Mapper, &b.MapperID,
		&b.RankStatus, &mode, &b.Length, &b.LengthDrain, &b.MaxCombo, &b.FixedRankStatus, &b.LastUpdate, &b.UpdateTime,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	b.Mode = domain.Mode(mode)
	return &b, nil
}

// Upsert writes a beatmap back to durable storage after a successful
// upstream fetch, keyed on Md5.
func (r *Repository) Upsert(ctx context.Context, b domain.BeatmapMetadata) error {
	const q = `
		INSERT INTO beatmaps.maps
			(server, id, set_id, md5, title, artist, diff_name, mapper, mapper_id,
			 rank_status, mode, length, length_drain, max_combo, fixed_rank_status, last_update, update_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (md5) DO UPDATE SET
			id = EXCLUDED.id, set_id = EXCLUDED.set_id, title = EXCLUDED.title,
			artist = EXCLUDED.artist, diff_name = EXCLUDED.diff_name, mapper = EXCLUDED.mapper,
			mapper_id = EXCLUDED.mapper_id, rank_status = EXCLUDED.rank_status, mode = EXCLUDED.mode,
			length = EXCLUDED.length, length_drain = EXCLUDED.length_drain, max_combo = EXCLUDED.max_combo,
			fixed_rank_status = EXCLUDED.fixed_rank_status, last_update = EXCLUDED.last_update,
			update_time = EXCLUDED.update_time`

	_, err := r.db.Exec(ctx, q,
		b.Server, b.ID, b.SetID, b.Md5, b.Title, b.Artist, b.DiffName, b.Mapper, b.MapperID,
		b.RankStatus, int16(b.Mode), b.Length, b.LengthDrain, b.MaxCombo, b.FixedRankStatus, b.LastUpdate, b.UpdateTime,
	)
	return err
}

// UpdateScore persists a recalculated score result, matching
// start_auto_pp_recalculate's UPDATE statement shape: pp_v2_raw carries the
// per-skill breakdown as a JSON object.
func (r *Repository) UpdateScore(ctx context.Context, table string, scoreID int64, result domain.CalcResult) error {
	raw, err := json.Marshal(map[string]float64{
		"aim":   result.Raw.Aim,
		"spd":   result.Raw.Spd,
		"str":   result.Raw.Str,
		"acc":   result.Raw.Acc,
		"total": result.Raw.Total,
	})
	if err != nil {
		return err
	}

	q := `UPDATE "game_scores"."` + table + `" SET pp_v2 = $1, pp_v2_raw = $2, stars = $3 WHERE "id" = $4`
	_, err = r.db.Exec(ctx, q, result.PP, raw, result.Stars, scoreID)
	return err
}

// RecalculatePlayerStats recomputes and persists a player's aggregate
// pp/accuracy for one mode, standing in for the sibling service's
// player-stats routine the original delegates to after a recalculation.
func (r *Repository) RecalculatePlayerStats(ctx context.Context, playerID int32, mode uint8) error {
	const q = `
		UPDATE "users"."stats" AS s
		SET pp_v2 = sub.pp, accuracy = sub.acc, updated_at = $3
		FROM (
			SELECT AVG(pp_v2) AS pp, AVG(accuracy) AS acc
			FROM "game_scores"."scores"
			WHERE user_id = $1 AND mode = $2
		) AS sub
		WHERE s.user_id = $1 AND s.mode = $2`

	_, err := r.db.Exec(ctx, q, playerID, int16(mode), time.Now())
	return err
}

var (
	_ domain.MetadataStore    = (*Repository)(nil)
	_ domain.ScoreStore       = (*Repository)(nil)
	_ domain.PlayerStatsStore = (*Repository)(nil)
)
