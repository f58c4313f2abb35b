// Package recalc implements the recalculation worker (C8): drains the
// durable queue, rebuilds pp per entry with idempotent retry, persists
// results, and coalesces player-level downstream notifications.
package recalc

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pp-server/pp-server/internal/domain"
	"github.com/pp-server/pp-server/internal/resolver"
)

// queueKeyFields is the number of colon-separated fields in a queue key:
// calc:<table>:<score_id>:<player_id>. The retry cap is config-driven
// (auto_pp_recalculate.max_retry).
const queueKeyFields = 4

// Worker drains `calc:*` queue entries every tick. The stricter
// retry-terminal policy is implemented here: entries whose try_count meets
// or exceeds MaxRetry are deleted, per DESIGN.md's open-question decision.
type Worker struct {
	queue   domain.Queue
	getter  *resolver.BeatmapGetter
	calc    domain.Calculator
	scores  domain.ScoreStore
	players domain.PlayerStatsStore
	notify  domain.Notifier

	maxRetry int
	interval time.Duration
	log      zerolog.Logger
}

// New builds a Worker.
func New(queue domain.Queue, getter *resolver.BeatmapGetter, calc domain.Calculator, scores domain.ScoreStore, players domain.PlayerStatsStore, notify domain.Notifier, maxRetry int, interval time.Duration, log zerolog.Logger) *Worker {
	return &Worker{
		queue:    queue,
		getter:   getter,
		calc:     calc,
		scores:   scores,
		players:  players,
		notify:   notify,
		maxRetry: maxRetry,
		interval: interval,
		log:      log.With().Str("component", "recalc").Logger(),
	}
}

// Run blocks, ticking until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick performs one full drain of the queue.
func (w *Worker) Tick(ctx context.Context) {
	w.log.Debug().Msg("task started")
	start := time.Now()

	keys, err := w.queue.Keys(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to get queue keys")
		return
	}
	if len(keys) == 0 {
		return
	}

	w.log.Debug().Int("count", len(keys)).Msg("tasks found, starting recalculate")

	var process, success, failed int
	tasks := make(map[int32]domain.UpdateUserTask)

	for _, key := range keys {
		process++
		if w.processOne(ctx, key, tasks) {
			success++
		} else {
			failed++
		}
	}

	if len(tasks) > 0 {
		batch := make([]domain.UpdateUserTask, 0, len(tasks))
		for _, t := range tasks {
			batch = append(batch, t)
		}
		if err := w.notify.NotifyUpdateUsers(ctx, batch); err != nil {
			w.log.Warn().Err(err).Int("players", len(batch)).Msg("failed to notify sibling service of player updates")
		}
	}

	w.log.Info().
		Dur("elapsed", time.Since(start)).
		Int("success", success).
		Int("total", process).
		Int("failed", failed).
		Msg("task done")
}

// processOne handles exactly one queue key, returning true on success.
// Grounded on start_auto_pp_recalculate's per-key branch-by-branch
// validation and retry bookkeeping.
func (w *Worker) processOne(ctx context.Context, key string, tasks map[int32]domain.UpdateUserTask) bool {
	parts := strings.Split(key, ":")
	if len(parts) != queueKeyFields {
		w.log.Warn().Str("key", key).Msg("invalid key (key length), removing it")
		_ = w.queue.Del(ctx, key)
		return false
	}
	table := parts[1]

	scoreID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		w.log.Warn().Str("key", key).Err(err).Msg("invalid key (score_id), removing it")
		_ = w.queue.Del(ctx, key)
		return false
	}

	playerID64, err := strconv.ParseInt(parts[3], 10, 32)
	if err != nil {
		w.log.Warn().Str("key", key).Err(err).Msg("invalid key (player_id), removing it")
		_ = w.queue.Del(ctx, key)
		return false
	}
	playerID := int32(playerID64)

	raw, ok, err := w.queue.Get(ctx, key)
	if err != nil || !ok {
		w.log.Warn().Str("key", key).Msg("invalid key (data), removing it")
		_ = w.queue.Del(ctx, key)
		return false
	}

	values := strings.SplitN(raw, ":", 2)
	if len(values) != 2 {
		w.log.Warn().Str("key", key).Msg("invalid key (values length), removing it")
		_ = w.queue.Del(ctx, key)
		return false
	}

	tryCount, err := strconv.Atoi(values[0])
	if err != nil {
		w.log.Warn().Str("key", key).Err(err).Msg("invalid key (try_count), removing it")
		_ = w.queue.Del(ctx, key)
		return false
	}

	if tryCount >= w.maxRetry {
		w.log.Warn().Str("key", key).Msg("key over max_retry, removing it")
		_ = w.queue.Del(ctx, key)
		return false
	}

	query, err := url.ParseQuery(values[1])
	if err != nil {
		w.log.Warn().Str("key", key).Err(err).Msg("invalid key (calc data parse), removing it")
		_ = w.queue.Del(ctx, key)
		return false
	}
	params := domain.CalcParamsFromValues(query)

	beatmap, _, err := w.getter.Get(ctx, params.Md5, params.Bid, params.Sid, params.FileName)
	if err != nil {
		w.log.Warn().Str("key", key).Int("try_count", tryCount).Err(err).Msg("failed to get beatmap")
		w.requeue(ctx, key, tryCount, values[1])
		return false
	}

	result, err := w.calc.Calculate(ctx, beatmap, params)
	if err != nil {
		w.log.Warn().Str("key", key).Err(err).Msg("failed to calculate pp")
		w.requeue(ctx, key, tryCount, values[1])
		return false
	}

	if err := w.scores.UpdateScore(ctx, table, scoreID, result); err != nil {
		w.log.Error().Str("key", key).Err(err).Msg("failed to save calculate result")
		w.requeue(ctx, key, tryCount, values[1])
		return false
	}

	// mode = CalcParams.mode ?? 0 for the player-stats routine, distinct
	// from the calculator's ModeAny sentinel used above.
	mode := uint8(0)
	if params.Mode != nil {
		mode = *params.Mode
	}
	if err := w.players.RecalculatePlayerStats(ctx, playerID, mode); err != nil {
		w.log.Warn().Int32("player_id", playerID).Err(err).Msg("failed to recalculate player stats")
	}

	tasks[playerID] = domain.UpdateUserTask{PlayerID: playerID, Mode: mode, Recalc: false}

	w.log.Debug().Str("key", key).Msg("key calculate done")
	_ = w.queue.Del(ctx, key)
	return true
}

func (w *Worker) requeue(ctx context.Context, key string, tryCount int, tail string) {
	_ = w.queue.Set(ctx, key, fmt.Sprintf("%d:%s", tryCount+1, tail))
}
