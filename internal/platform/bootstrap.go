// Package platform provides dependency injection and application bootstrapping.
// It wires together all adapters and services following the hexagonal architecture pattern.
package platform

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpad "github.com/pp-server/pp-server/internal/adapters/http"
	"github.com/pp-server/pp-server/internal/adapters/notifyclient"
	pg "github.com/pp-server/pp-server/internal/adapters/postgres"
	"github.com/pp-server/pp-server/internal/adapters/redisqueue"
	"github.com/pp-server/pp-server/internal/beatmapcache"
	"github.com/pp-server/pp-server/internal/beatmapstore"
	"github.com/pp-server/pp-server/internal/domain"
	"github.com/pp-server/pp-server/internal/metadatacache"
	"github.com/pp-server/pp-server/internal/osuapi"
	"github.com/pp-server/pp-server/internal/ppcalc"
	"github.com/pp-server/pp-server/internal/recalc"
	"github.com/pp-server/pp-server/internal/resolver"
)

// App is the fully wired application: the HTTP-facing getter/calculator
// pair, the debug-surface collaborators, and the optional background
// workers main starts once the server is listening.
type App struct {
	Getter       *resolver.BeatmapGetter
	Calc         domain.Calculator
	Clients      domain.ClientPool
	BeatmapCache domain.BeatmapCache
	Metrics      *httpad.Metrics
	ErrorHandler *httpad.ErrorHandler

	Reaper *beatmapcache.Reaper
	Worker *recalc.Worker // nil when the queue profile is disabled

	dbPool *pgxpool.Pool // nil when the metadata-store profile is disabled
	rdb    *redis.Client // nil when the queue profile is disabled
}

// Bootstrap wires every SPEC_FULL.md component: the in-memory metadata
// cache (C4), the parsed-beatmap cache (C3) and its reaper (C7), the osu!
// API client pool (C1) and file downloader (C2), the three-tier resolver
// (C5) and the unified beatmap getter, the filesystem store (C6), the
// pp/star-rating calculator, and - when the durable profile is configured -
// Postgres, Redis, and the notify client backing the recalc worker (C8).
//
// Uses exponential backoff retry and circuit breaker pattern for resilience,
// mirroring the original's startup probing of Postgres/Redis/osu!api.
func Bootstrap(ctx context.Context, cfg Config, logger zerolog.Logger) (*App, func(context.Context) error, error) {
	retryConfig := DefaultRetryConfig()

	beatmapCache := beatmapcache.New(int(cfg.BeatmapCacheMax), logger)
	reaper := beatmapcache.NewReaper(beatmapCache, time.Duration(cfg.AutoCleanIntervalSecs)*time.Second, cfg.BeatmapCacheTimeout, logger)

	parser := ppcalc.NewParser()
	calc := ppcalc.New()
	downloader := osuapi.NewDownloader(parser, logger)
	store := beatmapstore.New(cfg.OsuFilesDir, beatmapCache, parser, logger)

	if cfg.PreloadOsuFiles {
		store.Preload(int(cfg.BeatmapCacheMax))
	}
	if cfg.RecalculateOsuFileMd5 {
		store.Rehash()
	}

	pool := osuapi.NewPool(cfg.OsuAPIKeys, logger)
	if len(cfg.OsuAPIKeys) > 0 {
		clientCB := NewCircuitBreaker(logger, 5, 30*time.Second)
		probe := func(ctx context.Context) error {
			pool.TestAll(ctx)
			return nil
		}
		if err := WarmUpClientPool(ctx, logger, probe, retryConfig, clientCB); err != nil {
			logger.Warn().Err(err).Msg("osu!api client pool did not warm up cleanly, continuing anyway")
		}
	}

	metaCache := metadatacache.New(cfg.BeatmapCacheMax, logger)

	var metaStore domain.MetadataStore
	var scoreStore domain.ScoreStore
	var playerStats domain.PlayerStatsStore
	var dbPool *pgxpool.Pool

	if cfg.MetadataStoreEnabled() {
		dbCB := NewCircuitBreaker(logger, 5, 30*time.Second)
		var err error
		dbPool, err = ConnectPostgresWithRetry(ctx, logger, cfg.PostgresURL, retryConfig, dbCB)
		if err != nil {
			return nil, nil, err
		}
		repo := pg.New(dbPool)
		metaStore = repo
		scoreStore = repo
		playerStats = repo
	}

	resolve := resolver.New(metaCache, metaStore, pool, cfg.FreshnessTTL(), logger)
	getter := resolver.NewBeatmapGetter(resolve, store, downloader, logger)

	var rdb *redis.Client
	var worker *recalc.Worker
	if cfg.QueueEnabled() {
		redisCB := NewCircuitBreaker(logger, 5, 30*time.Second)
		var err error
		rdb, err = ConnectRedisWithRetry(ctx, logger, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, retryConfig, redisCB)
		if err != nil {
			return nil, nil, err
		}
		queue := redisqueue.New(rdb)
		notifier := notifyclient.New(cfg.NotifyBaseURL, logger)
		worker = recalc.New(queue, getter, calc, scoreStore, playerStats, notifier,
			cfg.AutoPPRecalcMaxRetry, time.Duration(cfg.AutoPPRecalcInterval)*time.Second, logger)
	}

	var metrics *httpad.Metrics
	if cfg.PrometheusNamespace != "" {
		metrics = httpad.NewMetrics(cfg.PrometheusNamespace)
	}

	errorHandler := httpad.NewErrorHandler(logger, cfg.Environment != "production")

	app := &App{
		Getter:       getter,
		Calc:         calc,
		Clients:      pool,
		BeatmapCache: beatmapCache,
		Metrics:      metrics,
		ErrorHandler: errorHandler,
		Reaper:       reaper,
		Worker:       worker,
		dbPool:       dbPool,
		rdb:          rdb,
	}

	cleanup := func(context.Context) error {
		if app.dbPool != nil {
			app.dbPool.Close()
		}
		if app.rdb != nil {
			_ = app.rdb.Close()
		}
		return nil
	}

	return app, cleanup, nil
}

// MountRoutes registers the security middleware stack and the application
// routes onto r.
func MountRoutes(r *chi.Mux, app *App, cfg Config, logger zerolog.Logger) {
	sec := SecurityConfig{
		RateLimitEnabled:      cfg.RateLimitEnabled,
		RateLimitRPM:          cfg.RateLimitRPM,
		RateLimitBurst:        cfg.RateLimitBurst,
		DDoSProtectionEnabled: cfg.DDoSProtectionEnabled,
		MaxRequestSize:        cfg.MaxRequestSize,
		MaxHeaderSize:         cfg.MaxHeaderSize,
		CORSOrigin:            cfg.CORSOrigin,
	}
	httpad.SetupSecurityMiddleware(r, sec, logger)

	r.Use(httpad.RecoveryMiddleware(app.ErrorHandler))
	r.Use(httpad.RequestIDMiddleware)

	r.Mount("/", httpad.NewRouter(app.Getter, app.Calc, app.Clients, app.BeatmapCache, app.Metrics, app.ErrorHandler, cfg.Debug, logger))
}
