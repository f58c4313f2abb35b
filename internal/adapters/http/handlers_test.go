package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pp-server/pp-server/internal/domain"
)

type fakeGetter struct {
	beatmap domain.ParsedBeatmap
	hash    string
	err     error
}

func (f *fakeGetter) Get(ctx context.Context, md5 string, bid, sid *int32, fileName string) (domain.ParsedBeatmap, string, error) {
	return f.beatmap, f.hash, f.err
}

type fakeCalculator struct {
	result domain.CalcResult
	err    error
}

func (f *fakeCalculator) Calculate(ctx context.Context, beatmap domain.ParsedBeatmap, params domain.CalcParams) (domain.CalcResult, error) {
	return f.result, f.err
}

type fakeClientPool struct{}

func (fakeClientPool) GetJSON(ctx context.Context, url string, query map[string]string, out any) error {
	return nil
}
func (fakeClientPool) Reload(newKeys []string) int                       { return 0 }
func (fakeClientPool) TestAll(ctx context.Context) []domain.ClientProbeResult { return nil }
func (fakeClientPool) Size() int                                         { return 0 }

type fakeBeatmapCache struct{ cleared bool }

func (c *fakeBeatmapCache) Get(md5 string) (domain.ParsedBeatmap, bool) { return nil, false }
func (c *fakeBeatmapCache) Put(md5 string, beatmap domain.ParsedBeatmap) {}
func (c *fakeBeatmapCache) Len() int                                     { return 0 }
func (c *fakeBeatmapCache) Reap(maxAge int64) int                        { return 0 }
func (c *fakeBeatmapCache) Clear()                                       { c.cleared = true }

func newTestAPI(getter beatmapGetter, calc domain.Calculator, debug bool) *api {
	return &api{
		getter:       getter,
		calc:         calc,
		clients:      fakeClientPool{},
		beatmapCache: &fakeBeatmapCache{},
		errorHandler: NewErrorHandler(zerolog.Nop(), true),
		debug:        debug,
		log:          zerolog.Nop(),
	}
}

func TestGetCalc_MissingIdentifier(t *testing.T) {
	a := newTestAPI(&fakeGetter{}, &fakeCalculator{}, false)

	req := httptest.NewRequest("GET", "/api/calc", nil)
	w := httptest.NewRecorder()
	a.getCalc(w, req)

	var resp calcResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, statusError, resp.Status)
	assert.Nil(t, resp.PP)
}

func TestGetCalc_InvalidMd5Length(t *testing.T) {
	a := newTestAPI(&fakeGetter{}, &fakeCalculator{}, false)

	req := httptest.NewRequest("GET", "/api/calc?md5=tooshort", nil)
	w := httptest.NewRecorder()
	a.getCalc(w, req)

	var resp calcResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, statusError, resp.Status)
}

func TestGetCalc_HappyPath(t *testing.T) {
	hash := "ccb1f31b5eeaf26d40f8c905293efc03"
	getter := &fakeGetter{beatmap: "osu file format v14", hash: hash}
	calc := &fakeCalculator{result: domain.CalcResult{PP: 250.5, Stars: 5.2}}
	a := newTestAPI(getter, calc, false)

	req := httptest.NewRequest("GET", "/api/calc?md5="+hash+"&mode=0&acc=98", nil)
	w := httptest.NewRecorder()
	a.getCalc(w, req)

	var resp calcResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, statusOK, resp.Status)
	require.NotNil(t, resp.PP)
	assert.InDelta(t, 250.5, *resp.PP, 0.001)
}

func TestGetCalc_HashMismatchReturnsNilPP(t *testing.T) {
	supplied := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	downloaded := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	getter := &fakeGetter{beatmap: "osu file format v14", hash: downloaded}
	calc := &fakeCalculator{result: domain.CalcResult{PP: 100}}
	a := newTestAPI(getter, calc, false)

	req := httptest.NewRequest("GET", "/api/calc?md5="+supplied, nil)
	w := httptest.NewRecorder()
	a.getCalc(w, req)

	var resp calcResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, statusOK, resp.Status)
	assert.Nil(t, resp.PP)
}

func TestGetCalc_FileNotFound(t *testing.T) {
	getter := &fakeGetter{err: domain.NewApiError(domain.ErrFileNotFound, "missing")}
	a := newTestAPI(getter, &fakeCalculator{}, false)

	req := httptest.NewRequest("GET", "/api/calc?md5=ccb1f31b5eeaf26d40f8c905293efc03", nil)
	w := httptest.NewRecorder()
	a.getCalc(w, req)

	var resp calcResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, statusFileNotFound, resp.Status)
}

func TestGetClearCache(t *testing.T) {
	cache := &fakeBeatmapCache{}
	a := &api{beatmapCache: cache, log: zerolog.Nop()}

	req := httptest.NewRequest("GET", "/clear_cache", nil)
	w := httptest.NewRecorder()
	a.getClearCache(w, req)

	assert.True(t, cache.cleared)
}
