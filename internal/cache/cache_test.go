package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

func TestCacheRoundTrip(t *testing.T) {
	c, err := New(t.TempDir(), 24*time.Hour)
	require.NoError(t, err)

	want := payload{Query: "city timelapse", Count: 3}
	require.NoError(t, c.Set("pexels_city timelapse_video", want))

	var got payload
	hit, err := c.Get("pexels_city timelapse_video", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, got)
}

func TestCacheMiss(t *testing.T) {
	c, err := New(t.TempDir(), 24*time.Hour)
	require.NoError(t, err)

	var got payload
	hit, err := c.Get("never written", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheTTLBoundary(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 24*time.Hour)
	require.NoError(t, err)

	key := "pixabay_ocean_video"
	require.NoError(t, c.Set(key, payload{Query: "ocean"}))

	// 23 hours old: still fresh.
	backdate(t, c, key, 23*time.Hour)
	var got payload
	hit, err := c.Get(key, &got)
	require.NoError(t, err)
	assert.True(t, hit)

	// 25 hours old: expired, treated as a miss.
	backdate(t, c, key, 25*time.Hour)
	hit, err = c.Get(key, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheSetSkipsFresherEntry(t *testing.T) {
	c, err := New(t.TempDir(), 24*time.Hour)
	require.NoError(t, err)

	key := "pexels_forest_video"
	require.NoError(t, c.Set(key, payload{Count: 1}))

	// A concurrent writer losing the race must not clobber a fresh entry.
	require.NoError(t, c.Set(key, payload{Count: 2}))

	var got payload
	hit, err := c.Get(key, &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 1, got.Count)
}

func TestCacheSetReplacesExpiredEntry(t *testing.T) {
	c, err := New(t.TempDir(), 24*time.Hour)
	require.NoError(t, err)

	key := "pexels_forest_video"
	require.NoError(t, c.Set(key, payload{Count: 1}))
	backdate(t, c, key, 25*time.Hour)

	require.NoError(t, c.Set(key, payload{Count: 2}))

	var got payload
	hit, err := c.Get(key, &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 2, got.Count)
}

func TestCacheAge(t *testing.T) {
	c, err := New(t.TempDir(), 24*time.Hour)
	require.NoError(t, err)

	_, known := c.Age("absent")
	assert.False(t, known)

	require.NoError(t, c.Set("present", payload{}))
	age, known := c.Age("present")
	assert.True(t, known)
	assert.Less(t, age, time.Minute)
}

func TestCachePurge(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 24*time.Hour)
	require.NoError(t, err)

	require.NoError(t, c.Set("a", payload{}))
	require.NoError(t, c.Set("b", payload{}))

	removed, err := c.Purge()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	var got payload
	hit, err := c.Get("a", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheNoPartialFiles(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 24*time.Hour)
	require.NoError(t, err)

	require.NoError(t, c.Set("k", payload{Query: "q"}))

	// Writes go through a temp file and rename; nothing transient survives.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".json", filepath.Ext(entries[0].Name()))
}

// backdate rewrites an entry's mtime so TTL expiry can be tested directly
func backdate(t *testing.T, c *Cache, key string, age time.Duration) {
	t.Helper()
	stamp := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(c.keyPath(key), stamp, stamp))
}
