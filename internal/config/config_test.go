package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	c := NewConfig()
	assert.Equal(t, 1000, c.ParallelThreshold)
	assert.Equal(t, 0, c.WorkerPoolSize)
	assert.Equal(t, int64(0), c.RankTieSeed)
	assert.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	c := Config{ParallelThreshold: 0}
	assert.Error(t, c.Validate())

	c = Config{ParallelThreshold: 100, WorkerPoolSize: -1}
	assert.Error(t, c.Validate())

	c = Config{ParallelThreshold: 100, WorkerPoolSize: 4}
	assert.NoError(t, c.Validate())
}

func TestWithDefaults(t *testing.T) {
	c := Config{}.WithDefaults()
	assert.Equal(t, 1000, c.ParallelThreshold)

	c = Config{ParallelThreshold: 50}.WithDefaults()
	assert.Equal(t, 50, c.ParallelThreshold)
}

func TestSetAndGetConfig(t *testing.T) {
	original := GetConfig()
	defer SetConfig(original)

	SetConfig(Config{ParallelThreshold: 42, RankTieSeed: 7})
	got := GetConfig()
	assert.Equal(t, 42, got.ParallelThreshold)
	assert.Equal(t, int64(7), got.RankTieSeed)
}

func TestLoadFromFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parallel_threshold: 250\nrank_tie_seed: 99\n"), 0o600))

	c, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 250, c.ParallelThreshold)
	assert.Equal(t, int64(99), c.RankTieSeed)
}

func TestLoadFromFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"worker_pool_size": 8}`), 0o600))

	c, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8, c.WorkerPoolSize)
	assert.Equal(t, 1000, c.ParallelThreshold)
}

func TestLoadFromFileUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0o600))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	source := map[string]string{"A": "4", "B": "3"}
	l := NewLookup("grades", source)
	source["A"] = "mutated"

	v, ok := l.Get("A")
	assert.True(t, ok)
	assert.Equal(t, "4", v)

	_, ok = l.Get("Z")
	assert.False(t, ok)

	assert.Equal(t, "grades", l.Name())
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, []string{"A", "B"}, l.Keys())
}

func TestLoadLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grades.yaml")
	require.NoError(t, os.WriteFile(path, []byte("A: \"4\"\nB: \"3\"\n"), 0o600))

	l, err := LoadLookup("grades", path)
	require.NoError(t, err)
	v, ok := l.Get("B")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
}
