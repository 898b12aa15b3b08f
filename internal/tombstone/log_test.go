package tombstone

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "missing.del"))

	deleted, err := l.Load()
	require.NoError(t, err)
	assert.True(t, deleted.IsEmpty())
}

func TestAppendAndLoad(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "keys.del"))

	require.NoError(t, l.Append(5))
	require.NoError(t, l.Append(99))
	require.NoError(t, l.Append(5)) // duplicate appends are fine

	deleted, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), deleted.GetCardinality())
	assert.True(t, deleted.Contains(5))
	assert.True(t, deleted.Contains(99))
	assert.False(t, deleted.Contains(1))
}

func TestLoadIgnoresTruncatedTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "torn.del")
	l := New(path)

	require.NoError(t, l.Append(1))
	require.NoError(t, l.Append(2))

	// Simulate a torn write: drop the last 3 bytes of the final record.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw[:len(raw)-3], 0o644))

	deleted, err := l.Load()
	require.NoError(t, err)
	assert.True(t, deleted.Contains(1))
	assert.False(t, deleted.Contains(2))
	assert.Equal(t, uint64(1), deleted.GetCardinality())
}

func TestAppendSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.del")

	require.NoError(t, New(path).Append(7))

	deleted, err := New(path).Load()
	require.NoError(t, err)
	assert.True(t, deleted.Contains(7))
}

func TestLargeKeys(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "big.del"))

	const big = uint64(1) << 63
	require.NoError(t, l.Append(big))

	deleted, err := l.Load()
	require.NoError(t, err)
	assert.True(t, deleted.Contains(big))
}
