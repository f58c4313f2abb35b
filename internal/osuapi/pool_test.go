package osuapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSONSuccessDecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"beatmap_id":"1"}]`))
	}))
	defer srv.Close()

	p := NewPool([]string{"key1"}, zerolog.Nop())

	var out []map[string]string
	err := p.GetJSON(context.Background(), srv.URL, nil, &out)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "1", out[0]["beatmap_id"])
}

func TestGetJSONNoClientsConfiguredErrors(t *testing.T) {
	p := NewPool(nil, zerolog.Nop())

	var out []map[string]string
	err := p.GetJSON(context.Background(), "http://example.invalid", nil, &out)
	assert.Error(t, err)
}

func TestGetJSONRotatesAwayFromFailingClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("k") == "bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	p := NewPool([]string{"bad", "good"}, zerolog.Nop())

	var out []map[string]string
	err := p.GetJSON(context.Background(), srv.URL, nil, &out)
	require.NoError(t, err)
}

func TestReloadPreservesSurvivorCountersAndAddsRemoves(t *testing.T) {
	p := NewPool([]string{"a", "b"}, zerolog.Nop())
	require.Equal(t, 2, p.Size())

	n := p.Reload([]string{"b", "c"})
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, p.Size())

	keys := make(map[string]bool)
	for _, cl := range p.snapshot() {
		keys[cl.key] = true
	}
	assert.True(t, keys["b"])
	assert.True(t, keys["c"])
	assert.False(t, keys["a"])
}

func TestTestAllReportsOneRowPerClient(t *testing.T) {
	p := NewPool([]string{"key1", "key2"}, zerolog.Nop())
	// TestAll always hits the fixed upstream testURL; regardless of network
	// reachability it must return exactly one row per configured client,
	// carrying the failure in row.Error rather than propagating it.
	results := p.TestAll(context.Background())
	assert.Len(t, results, 2)
}
