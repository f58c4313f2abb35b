package beatmapcache

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	c := New(100, zerolog.Nop())
	c.Put("md5hash", "parsed-handle")

	got, ok := c.Get("md5hash")
	require.True(t, ok)
	assert.Equal(t, "parsed-handle", got)
	assert.Equal(t, 1, c.Len())
}

func TestGetMissReturnsFalse(t *testing.T) {
	c := New(100, zerolog.Nop())
	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestPutDropsOnceOverMax(t *testing.T) {
	c := New(1, zerolog.Nop())
	c.Put("a", "A")
	c.Put("b", "B")
	c.Put("c", "C")

	_, ok := c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	_, ok = c.Get("c")
	assert.False(t, ok, "write that pushes past max is dropped")
}

func TestClearEmptiesCache(t *testing.T) {
	c := New(100, zerolog.Nop())
	c.Put("a", "A")
	c.Put("b", "B")
	require.Equal(t, 2, c.Len())

	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestReapEvictsOnlyStaleEntries(t *testing.T) {
	c := New(100, zerolog.Nop())
	c.mu.Lock()
	c.entries["old"] = entry{beatmap: "old", time: time.Now().Add(-10 * time.Second)}
	c.entries["fresh"] = entry{beatmap: "fresh", time: time.Now()}
	c.mu.Unlock()

	n := c.Reap(5)
	assert.Equal(t, 1, n)

	_, ok := c.Get("old")
	assert.False(t, ok)
	_, ok = c.Get("fresh")
	assert.True(t, ok)
}
