package recalc

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pp-server/pp-server/internal/domain"
	"github.com/pp-server/pp-server/internal/metadatacache"
	"github.com/pp-server/pp-server/internal/resolver"
)

type fakeQueue struct {
	data map[string]string
}

func newFakeQueue() *fakeQueue { return &fakeQueue{data: map[string]string{}} }

func (q *fakeQueue) Keys(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(q.data))
	for k := range q.data {
		keys = append(keys, k)
	}
	return keys, nil
}
func (q *fakeQueue) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := q.data[key]
	return v, ok, nil
}
func (q *fakeQueue) Set(ctx context.Context, key, value string) error {
	q.data[key] = value
	return nil
}
func (q *fakeQueue) Del(ctx context.Context, key string) error {
	delete(q.data, key)
	return nil
}

type fakeLocalStore struct{ beatmap domain.ParsedBeatmap }

func (s *fakeLocalStore) Get(hash string) (domain.ParsedBeatmap, error) { return s.beatmap, nil }
func (s *fakeLocalStore) Write(raw []byte, hash string)                 {}

type fakeDownloader struct{}

func (fakeDownloader) Download(ctx context.Context, bid int32) (domain.ParsedBeatmap, string, []byte, error) {
	return nil, "", nil, domain.NewApiError(domain.ErrNotExists, "not reached")
}

type fakeCalc struct{ err error }

func (c *fakeCalc) Calculate(ctx context.Context, beatmap domain.ParsedBeatmap, params domain.CalcParams) (domain.CalcResult, error) {
	if c.err != nil {
		return domain.CalcResult{}, c.err
	}
	return domain.CalcResult{PP: 123.4, Stars: 5}, nil
}

type fakeScores struct {
	calls int
	err   error
}

func (s *fakeScores) UpdateScore(ctx context.Context, table string, scoreID int64, result domain.CalcResult) error {
	s.calls++
	return s.err
}

type fakePlayers struct{ calls int }

func (p *fakePlayers) RecalculatePlayerStats(ctx context.Context, playerID int32, mode uint8) error {
	p.calls++
	return nil
}

type fakeNotifier struct {
	calls int
	tasks []domain.UpdateUserTask
}

func (n *fakeNotifier) NotifyUpdateUsers(ctx context.Context, tasks []domain.UpdateUserTask) error {
	n.calls++
	n.tasks = tasks
	return nil
}

func newGetterWithFreshMetadata(md5 string) *resolver.BeatmapGetter {
	cache := metadatacache.New(1000, zerolog.Nop())
	meta := &domain.BeatmapMetadata{ID: 1, Md5: md5, UpdateTime: time.Now()}
	cache.Put(md5, &meta.ID, meta)

	r := resolver.New(cache, nil, nil, 3600, zerolog.Nop())
	store := &fakeLocalStore{beatmap: "parsed-beatmap"}
	return resolver.NewBeatmapGetter(r, store, fakeDownloader{}, zerolog.Nop())
}

func TestTickSuccessDeletesKeyAndNotifies(t *testing.T) {
	queue := newFakeQueue()
	key := "calc:scores:100:5"
	queue.data[key] = "0:md5=abc123"

	getter := newGetterWithFreshMetadata("abc123")
	scores := &fakeScores{}
	players := &fakePlayers{}
	notifier := &fakeNotifier{}

	w := New(queue, getter, &fakeCalc{}, scores, players, notifier, 5, time.Second, zerolog.Nop())
	w.Tick(context.Background())

	_, ok := queue.data[key]
	assert.False(t, ok, "processed key must be deleted")
	assert.Equal(t, 1, scores.calls)
	assert.Equal(t, 1, players.calls)
	assert.Equal(t, 1, notifier.calls)
	require.Len(t, notifier.tasks, 1)
	assert.Equal(t, int32(5), notifier.tasks[0].PlayerID)
}

func TestProcessOneRequeuesOnCalculationFailure(t *testing.T) {
	queue := newFakeQueue()
	key := "calc:scores:100:5"
	queue.data[key] = "0:md5=abc123"

	getter := newGetterWithFreshMetadata("abc123")
	w := New(queue, getter, &fakeCalc{err: domain.NewApiError(domain.ErrParseFailed, "bad beatmap")}, &fakeScores{}, &fakePlayers{}, &fakeNotifier{}, 5, time.Second, zerolog.Nop())

	ok := w.processOne(context.Background(), key, map[int32]domain.UpdateUserTask{})
	assert.False(t, ok)

	raw, exists, err := queue.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, exists, "a retryable failure requeues rather than deleting")
	assert.Equal(t, "1:md5=abc123", raw)
}

func TestProcessOneDeletesOnceMaxRetryReached(t *testing.T) {
	queue := newFakeQueue()
	key := "calc:scores:100:5"
	queue.data[key] = fmt.Sprintf("%d:md5=abc123", 5)

	getter := newGetterWithFreshMetadata("abc123")
	w := New(queue, getter, &fakeCalc{}, &fakeScores{}, &fakePlayers{}, &fakeNotifier{}, 5, time.Second, zerolog.Nop())

	ok := w.processOne(context.Background(), key, map[int32]domain.UpdateUserTask{})
	assert.False(t, ok)

	_, exists, err := queue.Get(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, exists, "try_count >= max_retry must delete the entry, not requeue it")
}

func TestProcessOneRemovesMalformedKey(t *testing.T) {
	queue := newFakeQueue()
	key := "calc:onlythreefields:100"
	queue.data[key] = "0:md5=abc123"

	getter := newGetterWithFreshMetadata("abc123")
	w := New(queue, getter, &fakeCalc{}, &fakeScores{}, &fakePlayers{}, &fakeNotifier{}, 5, time.Second, zerolog.Nop())

	ok := w.processOne(context.Background(), key, map[int32]domain.UpdateUserTask{})
	assert.False(t, ok)

	_, exists, _ := queue.Get(context.Background(), key)
	assert.False(t, exists)
}
