// Package osuapi implements the upstream osu! API client pool (C1) and the
// raw beatmap file downloader (C2): retry-with-rotation GET/JSON requests,
// per-client health bookkeeping, pool reload, and a diagnostic probe.
package osuapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pp-server/pp-server/internal/domain"
)

const (
	requestTimeout = 15 * time.Second
	maxAttempts    = 3
	testURL        = "https://old.ppy.sh/api/get_beatmaps"
)

// Pool is the ordered set of configured osu! API clients, grounded on
// requester.rs's OsuApi: tries<=3 rotation loop, shared success/failed
// counters, reload-by-diff, test_all probe.
type Pool struct {
	mu      sync.RWMutex
	clients []*client

	successCount uint64
	failedCount  uint64
	lastDelayMS  int64

	log zerolog.Logger
}

// NewPool builds a Pool from the configured comma-separated api keys.
func NewPool(keys []string, log zerolog.Logger) *Pool {
	p := &Pool{log: log.With().Str("component", "osuapi").Logger()}
	for _, k := range keys {
		p.clients = append(p.clients, newClient(k))
	}
	if len(p.clients) == 0 {
		p.log.Warn().Msg("no osu! api keys configured, osu!api requests will fail")
	}
	return p
}

// Size reports the number of configured clients.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}

func (p *Pool) snapshot() []*client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*client, len(p.clients))
	copy(out, p.clients)
	return out
}

func (p *Pool) recordSuccess(delayMS int64) {
	atomic.AddUint64(&p.successCount, 1)
	atomic.StoreInt64(&p.lastDelayMS, delayMS)
}

func (p *Pool) recordFailed(delayMS int64) {
	atomic.AddUint64(&p.failedCount, 1)
	atomic.StoreInt64(&p.lastDelayMS, delayMS)
}

// get performs the retry-with-rotation GET: up to maxAttempts full passes
// over the client list, returning the first successful response body.
// Grounded on OsuApi::get's `tries <= 3` loop over api_clients.
func (p *Pool) get(ctx context.Context, rawURL string, query map[string]string) ([]byte, error) {
	clients := p.snapshot()
	if len(clients) == 0 {
		return nil, domain.NewApiError(domain.ErrNotExists, "no api clients configured")
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		for _, cl := range clients {
			body, delay, err := doGet(ctx, cl, rawURL, query)
			if err != nil {
				cl.markFailed(delay)
				p.recordFailed(delay)
				p.log.Warn().Str("key", cl.key).Int("attempt", attempt).Err(err).Msg("osu!api request failed")
				continue
			}
			cl.markSuccess(delay)
			p.recordSuccess(delay)
			p.log.Info().Str("key", cl.key).Int64("delay_ms", delay).Msg("osu!api request ok")
			return body, nil
		}
	}
	p.log.Warn().Msg("osu!api request over 3 times but still failed, stop request")
	return nil, domain.NewApiError(domain.ErrRequestFailed, "exceeded retry budget")
}

func doGet(ctx context.Context, cl *client, rawURL string, query map[string]string) ([]byte, int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, err
	}
	q := u.Query()
	q.Set("k", cl.key)
	for k, v := range query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, err
	}

	start := time.Now()
	resp, err := cl.httpClient.Do(req)
	delay := time.Since(start).Milliseconds()
	if err != nil {
		return nil, delay, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, delay, err
	}
	if resp.StatusCode >= 400 {
		return nil, delay, domain.NewApiError(domain.ErrRequestFailed, u.Host+": "+strconv.Itoa(resp.StatusCode))
	}
	return body, delay, nil
}

// GetJSON issues the retry-with-rotation GET and decodes the body into out.
func (p *Pool) GetJSON(ctx context.Context, rawURL string, query map[string]string, out any) error {
	body, err := p.get(ctx, rawURL, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		p.log.Error().Err(err).Msg("could not parse osu!api response as json")
		return domain.NewApiError(domain.ErrParseFailed, err.Error())
	}
	return nil
}

// Reload replaces the client set to exactly newKeys: clients whose key is
// absent from newKeys are removed, brand new keys are appended fresh, and
// survivors keep their existing counters untouched. Grounded on
// reload_clients's remove-then-add diff.
func (p *Pool) Reload(newKeys []string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	wanted := make(map[string]bool, len(newKeys))
	for _, k := range newKeys {
		wanted[k] = true
	}

	survivors := p.clients[:0]
	have := make(map[string]bool, len(p.clients))
	for _, cl := range p.clients {
		if wanted[cl.key] {
			survivors = append(survivors, cl)
			have[cl.key] = true
		} else {
			p.log.Info().Str("key", cl.key).Msg("removed osu!api key")
		}
	}
	for _, k := range newKeys {
		if !have[k] {
			p.log.Info().Str("key", k).Msg("added osu!api key")
			survivors = append(survivors, newClient(k))
		}
	}
	p.clients = survivors
	return len(p.clients)
}

// TestAll probes every client against the fixed debug endpoint, matching
// OsuApi::test_all.
func (p *Pool) TestAll(ctx context.Context) []domain.ClientProbeResult {
	clients := p.snapshot()
	results := make([]domain.ClientProbeResult, 0, len(clients))
	if len(clients) == 0 {
		p.log.Error().Msg("api keys not added, could not send requests")
		return results
	}

	for _, cl := range clients {
		_, delay, err := doGet(ctx, cl, testURL, map[string]string{"s": "1", "m": "0"})
		row := domain.ClientProbeResult{APIKey: cl.key, DelayMS: delay}
		if err != nil {
			cl.markFailed(delay)
			p.recordFailed(delay)
			row.Status = false
			row.Error = err.Error()
		} else {
			cl.markSuccess(delay)
			p.recordSuccess(delay)
			row.Status = true
		}
		results = append(results, row)
	}
	return results
}

var _ domain.ClientPool = (*Pool)(nil)
