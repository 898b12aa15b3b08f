package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapTempFile(t *testing.T, size int) (*Mapping, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(int64(size)))

	m, err := Map(f, size)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	t.Cleanup(func() { m.Close() })
	return m, path
}

func TestMapReadWrite(t *testing.T) {
	m, path := mapTempFile(t, 4096)

	assert.Equal(t, 4096, m.Size())
	require.Len(t, m.Bytes(), 4096)

	copy(m.Bytes(), "hello mapping")
	require.NoError(t, m.Flush())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello mapping", string(raw[:13]))
}

func TestWritesSurviveClose(t *testing.T) {
	m, path := mapTempFile(t, 128)

	m.Bytes()[0] = 0xAB
	m.Bytes()[127] = 0xCD
	require.NoError(t, m.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), raw[0])
	assert.Equal(t, byte(0xCD), raw[127])
}

func TestCloseIdempotent(t *testing.T) {
	m, _ := mapTempFile(t, 64)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.Nil(t, m.Bytes())
	assert.ErrorIs(t, m.Flush(), ErrClosed)
}

func TestMapInvalidSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	defer f.Close()

	_, err = Map(f, 0)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = Map(f, -1)
	assert.ErrorIs(t, err, ErrInvalidSize)
}
