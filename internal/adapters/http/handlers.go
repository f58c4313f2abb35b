package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/pp-server/pp-server/internal/domain"
)

// beatmapGetter is the subset of resolver.BeatmapGetter the calc handler
// needs: resolve metadata, then fetch the parsed beatmap locally or via the
// downloader.
type beatmapGetter interface {
	Get(ctx context.Context, md5 string, bid, sid *int32, fileName string) (domain.ParsedBeatmap, string, error)
}

// api is the HTTP adapter bridging requests to C5/C6/C2/C9 (calc) and the
// debug/diagnostic surface.
type api struct {
	getter       beatmapGetter
	calc         domain.Calculator
	clients      domain.ClientPool
	beatmapCache domain.BeatmapCache
	metrics      *Metrics
	errorHandler *ErrorHandler
	debug        bool
	log          zerolog.Logger
}

// NewRouter creates and configures the HTTP router for pp-server.
func NewRouter(getter beatmapGetter, calc domain.Calculator, clients domain.ClientPool, beatmapCache domain.BeatmapCache, metrics *Metrics, errorHandler *ErrorHandler, debug bool, log zerolog.Logger) chi.Router {
	r := chi.NewRouter()
	a := &api{
		getter:       getter,
		calc:         calc,
		clients:      clients,
		beatmapCache: beatmapCache,
		metrics:      metrics,
		errorHandler: errorHandler,
		debug:        debug,
		log:          log.With().Str("component", "http").Logger(),
	}

	r.Get("/", a.getIndex)
	r.Get("/api", a.getAPIHelp)
	r.Get("/api/calc", a.getCalc)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	if metrics != nil {
		r.Get("/metrics", metrics.Handler().ServeHTTP)
	}

	if debug {
		r.Get("/server/api-clients", a.getAPIClients)
		r.Get("/clear_cache", a.getClearCache)
		r.Get("/server_stop", a.getServerStop)
	}

	return r
}

// calcResponse is the JSON envelope for GET /api/calc.
type calcResponse struct {
	Status  int      `json:"status"`
	Message string   `json:"message"`
	PP      *float64 `json:"pp"`
	AccList *accList `json:"acc_list,omitempty"`
}

type accList struct {
	Acc95  float64 `json:"95"`
	Acc98  float64 `json:"98"`
	Acc99  float64 `json:"99"`
	Acc100 float64 `json:"100"`
}

const (
	statusOK           = 1
	statusError        = 0
	statusFileNotFound = -1
	statusParseError   = -2
)

// getCalc implements C9: parse query params, resolve metadata, acquire the
// parsed beatmap, invoke the external calculator, and return the result.
func (a *api) getCalc(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := domain.CalcParamsFromValues(q)

	var bid, sid *int32
	if v := q.Get("bid"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 32); err == nil {
			b := int32(i)
			bid = &b
		}
	}
	if v := q.Get("sid"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 32); err == nil {
			s := int32(i)
			sid = &s
		}
	}
	fileName := q.Get("file_name")
	suppliedMd5 := q.Get("md5")

	if suppliedMd5 == "" && bid == nil && sid == nil {
		a.writeCalc(w, statusError, "one of md5, bid, or sid is required", nil, nil)
		return
	}

	md5 := domain.SafeFileName(suppliedMd5)
	if suppliedMd5 != "" && len(md5) != 32 {
		a.writeCalc(w, statusError, "md5 must be 32 hex characters after sanitization", nil, nil)
		return
	}

	beatmap, hash, err := a.getter.Get(r.Context(), md5, bid, sid, fileName)
	if err != nil {
		a.trackMetric(statusError)
		switch {
		case domain.IsRequestError(err), errors.Is(err, domain.ErrNotExists):
			a.writeCalc(w, statusError, "cannot get beatmap from anyway", nil, nil)
		case errors.Is(err, domain.ErrFileNotFound):
			a.writeCalc(w, statusFileNotFound, "beatmap file not found", nil, nil)
		case errors.Is(err, domain.ErrParseFailed):
			a.writeCalc(w, statusParseError, "failed to parse beatmap file", nil, nil)
		default:
			a.writeCalc(w, statusError, "cannot get beatmap from anyway", nil, nil)
		}
		return
	}

	if suppliedMd5 != "" && hash != "" && !strings.EqualFold(hash, md5) {
		a.log.Warn().Str("supplied_md5", md5).Str("downloaded_hash", hash).Msg("beatmap content hash mismatch")
		a.writeCalc(w, statusOK, "done", nil, nil)
		return
	}

	result, err := a.calc.Calculate(r.Context(), beatmap, params)
	if err != nil {
		a.trackMetric(statusError)
		a.writeCalc(w, statusError, "failed to calculate pp", nil, nil)
		return
	}

	var list *accList
	if params.AccList != nil && *params.AccList {
		list = a.computeAccList(r.Context(), beatmap, params)
	}

	a.trackMetric(statusOK)
	pp := result.PP
	a.writeCalc(w, statusOK, "done", &pp, list)
}

// computeAccList recomputes pp at fixed accuracy checkpoints, the optional
// richer-profile extension spec §6 names but leaves semantics to the
// handler.
func (a *api) computeAccList(ctx context.Context, beatmap domain.ParsedBeatmap, params domain.CalcParams) *accList {
	at := func(acc float64) float64 {
		p := params
		p.Acc = &acc
		p.N50, p.N100, p.Miss = nil, nil, nil
		res, err := a.calc.Calculate(ctx, beatmap, p)
		if err != nil {
			return 0
		}
		return res.PP
	}
	return &accList{
		Acc95:  at(95),
		Acc98:  at(98),
		Acc99:  at(99),
		Acc100: at(100),
	}
}

func (a *api) writeCalc(w http.ResponseWriter, status int, message string, pp *float64, list *accList) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusOK, calcResponse{Status: status, Message: message, PP: pp, AccList: list})
}

func (a *api) trackMetric(status int) {
	if a.metrics == nil {
		return
	}
	a.metrics.CalcRequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

// getAPIClients is the debug-gated probe restoring OsuApi::test_all.
func (a *api) getAPIClients(w http.ResponseWriter, r *http.Request) {
	results := a.clients.TestAll(r.Context())
	writeJSON(w, http.StatusOK, results)
}

// getClearCache is the debug-gated C3 flush.
func (a *api) getClearCache(w http.ResponseWriter, r *http.Request) {
	a.beatmapCache.Clear()
	writeJSON(w, http.StatusOK, map[string]any{"status": "cleared"})
}

// getServerStop is the debug-gated shutdown signal; it reports accepted,
// sends SIGTERM to its own process, and lets main's signal-handling own the
// actual shutdown sequence.
func (a *api) getServerStop(w http.ResponseWriter, r *http.Request) {
	a.log.Warn().Msg("server_stop requested via debug endpoint")
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "stopping"})
	if p, err := os.FindProcess(os.Getpid()); err == nil {
		if err := p.Signal(syscall.SIGTERM); err != nil {
			a.log.Error().Err(err).Msg("failed to signal server shutdown")
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
