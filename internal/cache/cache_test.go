package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCache builds a Cache rooted in a temp directory so tests never
// touch the user's real cache.
func newTestCache(t *testing.T) *Cache {
	t.Helper()
	return &Cache{
		baseDir: t.TempDir(),
		ttl:     DefaultTTL,
	}
}

func TestSetAndGet(t *testing.T) {
	c := newTestCache(t)

	type association struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
	}

	original := map[string]association{
		"abc123": {Number: 42, Title: "Add the feature"},
	}
	key := GenerateKey("wms", "14.0", "shopfloor")

	require.NoError(t, c.Set(key, original))

	var retrieved map[string]association
	hit, err := c.Get(key, &retrieved)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, original, retrieved)
}

func TestGetMiss(t *testing.T) {
	c := newTestCache(t)

	var data map[string]string
	hit, err := c.Get("non-existent-key", &data)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestExpiration(t *testing.T) {
	c := newTestCache(t)
	c.SetTTL(100 * time.Millisecond)

	key := "expiring-key"
	require.NoError(t, c.Set(key, map[string]string{"test": "value"}))

	var retrieved map[string]string
	hit, err := c.Get(key, &retrieved)
	require.NoError(t, err)
	assert.True(t, hit)

	time.Sleep(150 * time.Millisecond)

	hit, err = c.Get(key, &retrieved)
	require.NoError(t, err)
	assert.False(t, hit)

	// The expired entry is removed from disk.
	_, err = os.Stat(c.getPath(key))
	assert.True(t, os.IsNotExist(err))
}

func TestClear(t *testing.T) {
	c := newTestCache(t)

	for i := 0; i < 5; i++ {
		key := GenerateKey("wms", string(rune('a'+i)))
		require.NoError(t, c.Set(key, map[string]int{"value": i}))
	}

	require.NoError(t, c.Clear())

	for i := 0; i < 5; i++ {
		key := GenerateKey("wms", string(rune('a'+i)))
		var data map[string]int
		hit, err := c.Get(key, &data)
		require.NoError(t, err)
		assert.False(t, hit)
	}

	// Clearing an already empty cache is fine.
	require.NoError(t, c.Clear())
}

func TestInvalidCacheEntry(t *testing.T) {
	c := newTestCache(t)

	key := "invalid-key"
	require.NoError(t, os.WriteFile(c.getPath(key), []byte("invalid json"), 0o644))

	// Treated as a miss and cleaned up.
	var data map[string]string
	hit, err := c.Get(key, &data)
	require.NoError(t, err)
	assert.False(t, hit)

	_, err = os.Stat(c.getPath(key))
	assert.True(t, os.IsNotExist(err))
}

func TestGetPath(t *testing.T) {
	c := newTestCache(t)

	path := c.getPath("test-key")
	assert.Equal(t, ".json", filepath.Ext(path))
	assert.Equal(t, c.baseDir, filepath.Dir(path))

	// Stable for the same key, distinct for different keys.
	assert.Equal(t, path, c.getPath("test-key"))
	assert.NotEqual(t, path, c.getPath("different-key"))
}

func TestGenerateKey(t *testing.T) {
	tests := []struct {
		name       string
		components []string
		expected   string
	}{
		{
			name:       "single component",
			components: []string{"wms"},
			expected:   "wms",
		},
		{
			name:       "repo branch addon",
			components: []string{"wms", "14.0", "shopfloor"},
			expected:   "wms:14.0:shopfloor",
		},
		{
			name:       "with empty component",
			components: []string{"wms", "", "shopfloor"},
			expected:   "wms::shopfloor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GenerateKey(tt.components...))
		})
	}
}

func TestDisabledStore(t *testing.T) {
	store := Disabled{}

	require.NoError(t, store.Set("key", map[string]string{"test": "value"}))

	var data map[string]string
	hit, err := store.Get("key", &data)
	require.NoError(t, err)
	assert.False(t, hit, "a disabled store always misses")

	require.NoError(t, store.Clear())
}
