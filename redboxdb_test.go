package redboxdb

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T, dim, capacity int, optFns ...Option) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vectors.db")
	db, err := Open(path, dim, capacity, optFns...)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, path
}

func TestBasicSearch(t *testing.T) {
	db, _ := openTemp(t, 3, 1000)

	require.NoError(t, db.Insert(1, []float32{1, 0, 0}))
	require.NoError(t, db.Insert(2, []float32{0, 1, 0}))

	key, err := db.Search([]float32{0.9, 0.1, 0})
	require.NoError(t, err)
	assert.Equal(t, int32(1), key)

	keys, err := db.SearchN([]float32{0, 0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, keys)
}

func TestSearchEmpty(t *testing.T) {
	db, _ := openTemp(t, 3, 10)

	key, err := db.Search([]float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, int32(-1), key)

	keys, err := db.SearchN([]float32{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")

	db, err := Open(path, 3, 100)
	require.NoError(t, err)
	require.NoError(t, db.Insert(50, []float32{0.5, 0.5, 0.5}))
	require.NoError(t, db.Close())

	db2, err := Open(path, 3, 100)
	require.NoError(t, err)
	defer db2.Close()

	key, err := db2.Search([]float32{0.5, 0.5, 0.5})
	require.NoError(t, err)
	assert.Equal(t, int32(50), key)
}

func TestSoftDeleteSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deleted.db")

	db, err := Open(path, 3, 100)
	require.NoError(t, err)
	require.NoError(t, db.Insert(5, []float32{0, 0, 0}))

	removed, err := db.Remove(5)
	require.NoError(t, err)
	assert.True(t, removed)
	require.NoError(t, db.Close())

	db2, err := Open(path, 3, 100)
	require.NoError(t, err)
	defer db2.Close()

	require.NoError(t, db2.Insert(999, []float32{100, 100, 100}))

	key, err := db2.Search([]float32{0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, int32(999), key, "tombstoned key must stay hidden after reopen")
}

func TestTopKWithDeletion(t *testing.T) {
	db, _ := openTemp(t, 3, 100)

	require.NoError(t, db.Insert(10, []float32{1, 0, 0}))
	require.NoError(t, db.Insert(20, []float32{2, 0, 0}))
	require.NoError(t, db.Insert(30, []float32{3, 0, 0}))

	removed, err := db.Remove(20)
	require.NoError(t, err)
	require.True(t, removed)

	keys, err := db.SearchN([]float32{0, 0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int32{10, 30}, keys)
}

func TestAutoIDContinuity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auto.db")

	db, err := Open(path, 2, 100)
	require.NoError(t, err)

	for want := uint64(1); want <= 3; want++ {
		got, err := db.InsertAuto([]float32{float32(want), 0})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	require.NoError(t, db.Close())

	db2, err := Open(path, 2, 100)
	require.NoError(t, err)
	defer db2.Close()

	got, err := db2.InsertAuto([]float32{4, 0})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), got, "auto-id counter must persist across reopen")
}

func TestDimensionGuardOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dim.db")

	db, err := Open(path, 3, 10)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(path, 4, 10)
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 4, dm.Expected)
	assert.Equal(t, 3, dm.Actual)
}

func TestDimensionMismatchOnOps(t *testing.T) {
	db, _ := openTemp(t, 3, 10)
	var dm *ErrDimensionMismatch

	assert.ErrorAs(t, db.Insert(1, []float32{1, 2}), &dm)

	_, err := db.InsertAuto([]float32{1})
	assert.ErrorAs(t, err, &dm)

	_, err = db.Update(1, []float32{1, 2, 3, 4})
	assert.ErrorAs(t, err, &dm)

	_, err = db.Search([]float32{1})
	assert.ErrorAs(t, err, &dm)

	_, err = db.SearchN([]float32{1, 2}, 3)
	assert.ErrorAs(t, err, &dm)

	assert.Equal(t, uint64(0), db.Count(), "rejected operations must not change state")
}

func TestCapacityExceeded(t *testing.T) {
	db, _ := openTemp(t, 2, 2)

	require.NoError(t, db.Insert(1, []float32{1, 1}))
	require.NoError(t, db.Insert(2, []float32{2, 2}))

	var ce *ErrCapacityExceeded
	err := db.Insert(3, []float32{3, 3})
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, uint64(2), ce.Capacity)

	// The full database still answers queries.
	key, err := db.Search([]float32{1, 1})
	require.NoError(t, err)
	assert.Equal(t, int32(1), key)
}

func TestUpdate(t *testing.T) {
	db, _ := openTemp(t, 2, 10)

	require.NoError(t, db.Insert(7, []float32{0, 0}))

	updated, err := db.Update(7, []float32{5, 5})
	require.NoError(t, err)
	assert.True(t, updated)

	key, err := db.Search([]float32{5, 5})
	require.NoError(t, err)
	assert.Equal(t, int32(7), key)

	// Unknown and deleted keys are not updatable.
	updated, err = db.Update(8, []float32{1, 1})
	require.NoError(t, err)
	assert.False(t, updated)

	_, err = db.Remove(7)
	require.NoError(t, err)
	updated, err = db.Update(7, []float32{2, 2})
	require.NoError(t, err)
	assert.False(t, updated)

	assert.Equal(t, uint64(1), db.Count(), "update must not append rows")
}

func TestRemoveIdempotence(t *testing.T) {
	db, _ := openTemp(t, 2, 10)

	require.NoError(t, db.Insert(4, []float32{1, 1}))

	removed, err := db.Remove(4)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = db.Remove(4)
	require.NoError(t, err)
	assert.False(t, removed, "second remove must report false")

	// Re-insertion makes the key removable again.
	require.NoError(t, db.Insert(4, []float32{1, 1}))
	removed, err = db.Remove(4)
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestRemoveThenReinsert(t *testing.T) {
	db, _ := openTemp(t, 2, 10)

	require.NoError(t, db.Insert(9, []float32{1, 2}))

	removed, err := db.Remove(9)
	require.NoError(t, err)
	require.True(t, removed)

	require.NoError(t, db.Insert(9, []float32{3, 4}))

	key, err := db.Search([]float32{3, 4})
	require.NoError(t, err)
	assert.Equal(t, int32(9), key)
	assert.Equal(t, uint64(2), db.Count(), "slots are never reclaimed")
	assert.Equal(t, uint64(1), db.Live())
}

func TestReinsertSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "undelete.db")

	db, err := Open(path, 2, 10)
	require.NoError(t, err)
	require.NoError(t, db.Insert(3, []float32{1, 0}))
	_, err = db.Remove(3)
	require.NoError(t, err)
	require.NoError(t, db.Insert(3, []float32{0, 1}))
	require.NoError(t, db.Close())

	// On reopen the tombstone log still lists 3, but the index rebuild
	// maps the key to its newest slot, which is past every tombstoned
	// occurrence.
	db2, err := Open(path, 2, 10)
	require.NoError(t, err)
	defer db2.Close()

	key, err := db2.Search([]float32{0, 1})
	require.NoError(t, err)
	assert.Equal(t, int32(3), key)

	updated, err := db2.Update(3, []float32{0.5, 0.5})
	require.NoError(t, err)
	assert.True(t, updated)
}

func TestDuplicateInsertShadowsOldSlot(t *testing.T) {
	db, _ := openTemp(t, 2, 10)

	require.NoError(t, db.Insert(1, []float32{0, 0}))
	require.NoError(t, db.Insert(1, []float32{9, 9}))

	assert.Equal(t, uint64(2), db.Count())
	assert.Equal(t, uint64(1), db.Live())

	// The index points at the newest slot; updates hit it.
	updated, err := db.Update(1, []float32{8, 8})
	require.NoError(t, err)
	assert.True(t, updated)

	key, err := db.Search([]float32{8, 8})
	require.NoError(t, err)
	assert.Equal(t, int32(1), key)
}

func TestSearchNEdgeCases(t *testing.T) {
	db, _ := openTemp(t, 2, 10)

	require.NoError(t, db.Insert(1, []float32{1, 0}))
	require.NoError(t, db.Insert(2, []float32{2, 0}))

	t.Run("ZeroN", func(t *testing.T) {
		keys, err := db.SearchN([]float32{0, 0}, 0)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("NBeyondLiveCount", func(t *testing.T) {
		keys, err := db.SearchN([]float32{0, 0}, 10)
		require.NoError(t, err)
		assert.Equal(t, []int32{1, 2}, keys)
	})

	t.Run("NegativeN", func(t *testing.T) {
		_, err := db.SearchN([]float32{0, 0}, -1)
		assert.ErrorIs(t, err, ErrInvalidN)
	})
}

func TestSearchTieLowerSlotWins(t *testing.T) {
	db, _ := openTemp(t, 2, 10)

	// Equidistant from the query.
	require.NoError(t, db.Insert(10, []float32{1, 0}))
	require.NoError(t, db.Insert(20, []float32{-1, 0}))

	key, err := db.Search([]float32{0, 0})
	require.NoError(t, err)
	assert.Equal(t, int32(10), key)
}

func TestOperationsAfterClose(t *testing.T) {
	db, _ := openTemp(t, 2, 10)
	require.NoError(t, db.Close())

	assert.ErrorIs(t, db.Insert(1, []float32{1, 1}), ErrClosed)

	_, err := db.InsertAuto([]float32{1, 1})
	assert.ErrorIs(t, err, ErrClosed)

	_, err = db.Update(1, []float32{1, 1})
	assert.ErrorIs(t, err, ErrClosed)

	_, err = db.Remove(1)
	assert.ErrorIs(t, err, ErrClosed)

	_, err = db.Search([]float32{1, 1})
	assert.ErrorIs(t, err, ErrClosed)

	_, err = db.SearchN([]float32{1, 1}, 2)
	assert.ErrorIs(t, err, ErrClosed)

	assert.ErrorIs(t, db.Flush(), ErrClosed)
	require.NoError(t, db.Close(), "close is idempotent")
}

// TestIndexTombstoneDisjoint checks the structural invariant: every
// appended row's key is findable through the index or tombstoned, never
// both.
func TestIndexTombstoneDisjoint(t *testing.T) {
	db, _ := openTemp(t, 2, 100)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 40; i++ {
		key := uint64(rng.Intn(10) + 1)
		switch rng.Intn(3) {
		case 0, 1:
			require.NoError(t, db.Insert(key, []float32{rng.Float32(), rng.Float32()}))
		case 2:
			_, err := db.Remove(key)
			require.NoError(t, err)
		}
	}

	for key, slot := range db.index {
		assert.False(t, db.deleted.Contains(key), "key %d both live and deleted", key)
		assert.Less(t, uint64(slot), db.Count())
	}
}

// TestScalarSIMDAgreement runs the same workload on the probed kernel
// and the forced-generic kernel; result keys must match on
// well-separated data.
func TestScalarSIMDAgreement(t *testing.T) {
	const dim = 19 // exercises the SIMD tail
	rng := rand.New(rand.NewSource(99))

	vectors := make([][]float32, 50)
	for i := range vectors {
		vectors[i] = make([]float32, dim)
		for j := range vectors[i] {
			vectors[i][j] = rng.Float32() * 10
		}
	}
	query := make([]float32, dim)
	for j := range query {
		query[j] = rng.Float32() * 10
	}

	run := func(t *testing.T, optFns ...Option) []int32 {
		db, _ := openTemp(t, dim, 100, optFns...)
		for i, v := range vectors {
			require.NoError(t, db.Insert(uint64(i+1), v))
		}
		keys, err := db.SearchN(query, 10)
		require.NoError(t, err)
		return keys
	}

	auto := run(t)
	generic := run(t, WithGenericKernel())
	assert.Equal(t, generic, auto)
}

func TestMetricsCollector(t *testing.T) {
	var mc BasicMetricsCollector
	db, _ := openTemp(t, 2, 10, WithMetricsCollector(&mc))

	require.NoError(t, db.Insert(1, []float32{1, 1}))
	_, err := db.Search([]float32{1, 1})
	require.NoError(t, err)
	_, err = db.Update(1, []float32{2, 2})
	require.NoError(t, err)
	_, err = db.Remove(1)
	require.NoError(t, err)

	assert.Equal(t, int64(1), mc.InsertCount.Load())
	assert.Equal(t, int64(1), mc.SearchCount.Load())
	assert.Equal(t, int64(1), mc.UpdateCount.Load())
	assert.Equal(t, int64(1), mc.RemoveCount.Load())
}
