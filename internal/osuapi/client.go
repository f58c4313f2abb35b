package osuapi

import (
	"net/http"
	"sync/atomic"
)

// client wraps one configured osu! API key with its own http.Client and
// running health counters, mirroring the original's OsuApiClient.
type client struct {
	key        string
	httpClient *http.Client

	successCount uint64
	failedCount  uint64
	lastDelayMS  int64
}

func newClient(key string) *client {
	return &client{
		key:        key,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

func (c *client) markSuccess(delayMS int64) {
	atomic.AddUint64(&c.successCount, 1)
	atomic.StoreInt64(&c.lastDelayMS, delayMS)
}

func (c *client) markFailed(delayMS int64) {
	atomic.AddUint64(&c.failedCount, 1)
	atomic.StoreInt64(&c.lastDelayMS, delayMS)
}
