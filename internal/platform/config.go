// Package platform provides configuration management for the application.
// Configuration is loaded from environment variables with sensible defaults.
package platform

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration values.
type Config struct {
	HTTPPort    string
	PostgresURL string // empty => standalone profile, no durable metadata store
	RedisAddr   string // empty => standalone profile, no recalc worker
	RedisDB     int
	RedisPass   string
	CORSOrigin  string

	OsuFilesDir            string // empty => boot error
	RecalculateOsuFileMd5  bool
	PreloadOsuFiles        bool
	BeatmapCacheMax        int64
	BeatmapCacheTimeout    int64 // seconds; C3 reaper threshold + C4 freshness (standalone profile)
	TimeoutBeatmapCache    int64 // seconds; C4 freshness (durable profile)
	AutoCleanCache         bool
	AutoCleanIntervalSecs  int
	AutoPPRecalcInterval   int
	AutoPPRecalcMaxRetry   int
	OsuAPIKeys             []string
	NotifyBaseURL          string

	PrometheusNamespace        string
	PrometheusEndpoint         string
	PrometheusExcludeEndpoints []string

	RateLimitEnabled      bool
	RateLimitRPM          string
	RateLimitBurst        string
	DDoSProtectionEnabled bool
	MaxRequestSize        string
	MaxHeaderSize         string
	Environment           string
	Debug                 bool
}

// MetadataStoreEnabled reports whether the durable-store profile is active.
func (c Config) MetadataStoreEnabled() bool { return c.PostgresURL != "" }

// QueueEnabled reports whether the recalc worker's durable queue is active.
func (c Config) QueueEnabled() bool { return c.RedisAddr != "" }

// FreshnessTTL picks the right TTL for C4/C5 depending on which profile is
// active, per spec §4.5 ("Fresh" uses timeout_beatmap_cache in the durable
// profile, beatmap_cache_timeout in the standalone profile).
func (c Config) FreshnessTTL() int64 {
	if c.MetadataStoreEnabled() {
		return c.TimeoutBeatmapCache
	}
	return c.BeatmapCacheTimeout
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "true" || v == "1" || v == "yes"
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return i
}

func getenvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadConfig loads configuration from environment variables, with defaults
// that let the service run out-of-the-box against docker-compose.
func LoadConfig() Config {
	return Config{
		HTTPPort:    getenv("HTTP_PORT", "8080"),
		PostgresURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		RedisDB:     getenvInt("REDIS_DB", 0),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		CORSOrigin:  getenv("CORS_ORIGIN", "*"),

		OsuFilesDir:           os.Getenv("OSU_FILES_DIR"),
		RecalculateOsuFileMd5: getenvBool("RECALCULATE_OSU_FILE_MD5", false),
		PreloadOsuFiles:       getenvBool("PRELOAD_OSU_FILES", false),
		BeatmapCacheMax:       getenvInt64("BEATMAP_CACHE_MAX", 50_000),
		BeatmapCacheTimeout:   getenvInt64("BEATMAP_CACHE_TIMEOUT", 3600),
		TimeoutBeatmapCache:   getenvInt64("TIMEOUT_BEATMAP_CACHE", 3600),
		AutoCleanCache:        getenvBool("AUTO_CLEAN_CACHE", true),
		AutoCleanIntervalSecs: getenvInt("AUTO_CLEAN_INTERVAL", 600),
		AutoPPRecalcInterval:  getenvInt("AUTO_PP_RECALCULATE_INTERVAL", 10),
		AutoPPRecalcMaxRetry:  getenvInt("AUTO_PP_RECALCULATE_MAX_RETRY", 5),
		OsuAPIKeys:            getenvList("OSU_API_KEYS"),
		NotifyBaseURL:         getenv("NOTIFY_BASE_URL", "http://localhost:8081"),

		PrometheusNamespace:        getenv("PROMETHEUS_NAMESPACE", "pp_server"),
		PrometheusEndpoint:         getenv("PROMETHEUS_ENDPOINT", "/metrics"),
		PrometheusExcludeEndpoints: getenvList("PROMETHEUS_EXCLUDE_ENDPOINT_LOG"),

		RateLimitEnabled:      getenvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRPM:          getenv("RATE_LIMIT_RPM", "100"),
		RateLimitBurst:        getenv("RATE_LIMIT_BURST", ""),
		DDoSProtectionEnabled: getenvBool("DDOS_PROTECTION_ENABLED", true),
		MaxRequestSize:        getenv("MAX_REQUEST_SIZE", "10485760"),
		MaxHeaderSize:         getenv("MAX_HEADER_SIZE", "8192"),
		Environment:           getenv("ENVIRONMENT", "development"),
		Debug:                 getenvBool("DEBUG", false),
	}
}

// Validate enforces the one hard boot-time requirement from spec §6:
// osu_files_dir empty => error at boot (utils::checking_osu_dir).
func (c Config) Validate() error {
	if c.OsuFilesDir == "" {
		return fmt.Errorf("OSU_FILES_DIR must be set")
	}
	return nil
}
