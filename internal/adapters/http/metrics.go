package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments, registered under the configured
// namespace. Only CalcRequestsTotal is updated (by the calc handler); the
// cache, client and recalc counters are registered but nothing increments
// them. The scrape handler is mounted at the fixed path /metrics; the
// configured endpoint value is not used for routing.
type Metrics struct {
	CalcRequestsTotal  *prometheus.CounterVec
	MetadataCacheHits  prometheus.Counter
	MetadataCacheMiss  prometheus.Counter
	BeatmapCacheHits   prometheus.Counter
	BeatmapCacheMiss   prometheus.Counter
	ClientSuccessTotal prometheus.Counter
	ClientFailedTotal  prometheus.Counter
	RecalcProcessed    prometheus.Counter
	RecalcFailed       prometheus.Counter
}

// NewMetrics registers every instrument under namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		CalcRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calc_requests_total",
			Help:      "Total /api/calc requests by outcome status.",
		}, []string{"status"}),
		MetadataCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_cache_hits_total",
			Help:      "C4 metadata cache hits.",
		}),
		MetadataCacheMiss: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_cache_misses_total",
			Help:      "C4 metadata cache misses.",
		}),
		BeatmapCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "beatmap_cache_hits_total",
			Help:      "C3 parsed-beatmap cache hits.",
		}),
		BeatmapCacheMiss: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "beatmap_cache_misses_total",
			Help:      "C3 parsed-beatmap cache misses.",
		}),
		ClientSuccessTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_client_success_total",
			Help:      "Successful upstream API client requests.",
		}),
		ClientFailedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_client_failed_total",
			Help:      "Failed upstream API client requests.",
		}),
		RecalcProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recalc_processed_total",
			Help:      "Recalculation queue entries successfully processed.",
		}),
		RecalcFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recalc_failed_total",
			Help:      "Recalculation queue entries that failed or were dropped.",
		}),
	}
}

// Handler returns the scrape endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
