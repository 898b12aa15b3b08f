package redboxdb

import (
	"context"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/redboxdb/internal/queue"
	"github.com/hupe1980/redboxdb/internal/rowstore"
	"github.com/hupe1980/redboxdb/internal/simd"
	"github.com/hupe1980/redboxdb/internal/tombstone"
)

// TombstoneSuffix is appended to the data file path to name the
// tombstone log ("<path>.del").
const TombstoneSuffix = ".del"

// DB is one open database: the mapped row store, the tombstone log, the
// in-memory key index and the distance kernel chosen at open.
//
// DB performs no internal synchronization. One writer and one reader at
// a time; callers that share a DB serialize access.
type DB struct {
	store   *rowstore.Store
	log     *tombstone.Log
	deleted *roaring64.Bitmap
	index   map[uint64]uint32
	kernel  simd.Func
	isa     simd.ISA
	logger  *Logger
	metrics MetricsCollector
	closed  bool
}

// Open opens or creates the database at path with the given dimension
// and row capacity. The tombstone log lives next to the data file at
// path + ".del".
//
// Opening an existing file with a different dimension fails with
// ErrDimensionMismatch and leaves the file unmodified.
func Open(path string, dim, capacity int, optFns ...Option) (*DB, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	store, err := rowstore.Open(path, dim, capacity)
	if err != nil {
		return nil, translateError(err)
	}

	log := tombstone.New(path + TombstoneSuffix)
	deleted, err := log.Load()
	if err != nil {
		store.Close()
		return nil, err
	}

	isa := simd.Available()
	if opts.kernelForced {
		isa = opts.kernel
	}
	kernel, ok := simd.SquaredL2Kernel(isa)
	if !ok {
		kernel, _ = simd.SquaredL2Kernel(simd.Generic)
		isa = simd.Generic
	}

	db := &DB{
		store:   store,
		log:     log,
		deleted: deleted,
		kernel:  kernel,
		isa:     isa,
		logger:  opts.logger,
		metrics: opts.metricsCollector,
	}
	db.rebuildIndex()

	db.logger.Info("database opened",
		"path", path,
		"dimension", dim,
		"capacity", capacity,
		"rows", store.Count(),
		"live", len(db.index),
		"kernel", isa.String(),
	)

	return db, nil
}

// rebuildIndex scans the row store and maps every non-tombstoned key to
// its slot. Slots are visited in ascending order, so when a key appears
// more than once (a re-insert after delete) the highest slot wins.
func (db *DB) rebuildIndex() {
	count := db.store.Count()
	db.index = make(map[uint64]uint32, count)
	for slot := uint32(0); uint64(slot) < count; slot++ {
		key, _, err := db.store.RowRaw(slot)
		if err != nil {
			panic(err) // slot < count, cannot happen
		}
		if !db.deleted.Contains(key) {
			db.index[key] = slot
		}
	}
}

// Dim returns the fixed vector dimension.
func (db *DB) Dim() int {
	return db.store.Dim()
}

// Count returns the number of appended rows, live and tombstoned.
func (db *DB) Count() uint64 {
	return db.store.Count()
}

// Live returns the number of live (findable) keys.
func (db *DB) Live() uint64 {
	return uint64(len(db.index))
}

// Capacity returns the row capacity fixed at creation.
func (db *DB) Capacity() uint64 {
	return db.store.Capacity()
}

// Kernel returns the name of the distance kernel selected at open.
func (db *DB) Kernel() string {
	return db.isa.String()
}

// Insert appends a new row for key. No uniqueness is enforced: inserting
// an existing live key appends a shadow row and repoints the index at
// it; the stale slot is filtered out of queries but never reclaimed.
// Inserting a previously deleted key clears the in-memory tombstone (the
// on-disk log is not rewritten), so re-insertion acts as undelete.
func (db *DB) Insert(key uint64, values []float32) error {
	start := time.Now()
	err := db.insert(key, values)
	db.metrics.RecordInsert(time.Since(start), err)
	db.logger.LogInsert(context.Background(), key, len(values), err)
	return err
}

func (db *DB) insert(key uint64, values []float32) error {
	if db.closed {
		return ErrClosed
	}
	if len(values) != db.store.Dim() {
		return &ErrDimensionMismatch{Expected: db.store.Dim(), Actual: len(values)}
	}

	if db.deleted.Contains(key) {
		db.deleted.Remove(key)
	}

	slot, err := db.store.Append(key, values)
	if err != nil {
		return translateError(err)
	}
	db.index[key] = slot

	return nil
}

// InsertAuto claims the next auto-assigned key and inserts values under
// it. Keys start at 1 and are strictly increasing across the lifetime of
// the file, including across reopens.
func (db *DB) InsertAuto(values []float32) (uint64, error) {
	start := time.Now()
	key, err := db.insertAuto(values)
	db.metrics.RecordInsert(time.Since(start), err)
	db.logger.LogInsert(context.Background(), key, len(values), err)
	return key, err
}

func (db *DB) insertAuto(values []float32) (uint64, error) {
	if db.closed {
		return 0, ErrClosed
	}
	if len(values) != db.store.Dim() {
		return 0, &ErrDimensionMismatch{Expected: db.store.Dim(), Actual: len(values)}
	}

	key := db.store.NextIDFetchAdd()
	if err := db.insert(key, values); err != nil {
		return 0, err
	}
	return key, nil
}

// Update overwrites the floats of key's row in place, O(1). Returns
// false if key is deleted or unknown.
func (db *DB) Update(key uint64, values []float32) (bool, error) {
	start := time.Now()
	updated, err := db.update(key, values)
	db.metrics.RecordUpdate(time.Since(start), err)
	db.logger.LogUpdate(context.Background(), key, updated, err)
	return updated, err
}

func (db *DB) update(key uint64, values []float32) (bool, error) {
	if db.closed {
		return false, ErrClosed
	}
	if len(values) != db.store.Dim() {
		return false, &ErrDimensionMismatch{Expected: db.store.Dim(), Actual: len(values)}
	}

	if db.deleted.Contains(key) {
		return false, nil
	}
	slot, ok := db.index[key]
	if !ok {
		return false, nil
	}

	if err := db.store.Overwrite(slot, values); err != nil {
		return false, translateError(err)
	}
	return true, nil
}

// Remove marks key deleted: the tombstone is durably appended to the log
// before Remove returns, and the key stops being findable immediately.
// The row slot is not reclaimed. Returns false if key is already
// deleted.
func (db *DB) Remove(key uint64) (bool, error) {
	start := time.Now()
	removed, err := db.remove(key)
	db.metrics.RecordRemove(time.Since(start), err)
	if err == nil {
		db.logger.LogRemove(context.Background(), key, removed)
	}
	return removed, err
}

func (db *DB) remove(key uint64) (bool, error) {
	if db.closed {
		return false, ErrClosed
	}
	if db.deleted.Contains(key) {
		return false, nil
	}

	if err := db.log.Append(key); err != nil {
		return false, err
	}
	db.deleted.Add(key)
	delete(db.index, key)

	return true, nil
}

// Search returns the key of the live row closest to query by squared
// Euclidean distance, or -1 if there are no live rows. Ties go to the
// lower slot.
//
// The result is narrowed to int32 for the wire protocol; keys above
// 2³¹-1 are truncated. Callers needing full-width keys should keep keys
// below that bound.
func (db *DB) Search(query []float32) (int32, error) {
	start := time.Now()
	key, err := db.search(query)
	db.metrics.RecordSearch(1, time.Since(start), err)

	found := 0
	if key >= 0 {
		found = 1
	}
	db.logger.LogSearch(context.Background(), 1, found, err)

	return key, err
}

func (db *DB) search(query []float32) (int32, error) {
	if db.closed {
		return -1, ErrClosed
	}
	if len(query) != db.store.Dim() {
		return -1, &ErrDimensionMismatch{Expected: db.store.Dim(), Actual: len(query)}
	}

	kernel := db.kernel
	count := db.store.Count()

	found := false
	var bestKey uint64
	var bestDist float32

	for slot := uint32(0); uint64(slot) < count; slot++ {
		key, vec, err := db.store.RowRaw(slot)
		if err != nil {
			panic(err) // slot < count, cannot happen
		}
		// Skip tombstoned rows and stale shadow slots of re-inserted keys.
		if live, ok := db.index[key]; !ok || live != slot {
			continue
		}

		dist := kernel(query, vec)
		if !found || dist < bestDist {
			found = true
			bestDist = dist
			bestKey = key
		}
	}

	if !found {
		return -1, nil
	}
	return int32(bestKey), nil
}

// SearchN returns the keys of the n live rows closest to query,
// ascending by distance. The result has fewer than n entries when fewer
// live rows exist; n = 0 returns an empty slice.
func (db *DB) SearchN(query []float32, n int) ([]int32, error) {
	start := time.Now()
	keys, err := db.searchN(query, n)
	db.metrics.RecordSearch(n, time.Since(start), err)
	db.logger.LogSearch(context.Background(), n, len(keys), err)
	return keys, err
}

func (db *DB) searchN(query []float32, n int) ([]int32, error) {
	if db.closed {
		return nil, ErrClosed
	}
	if n < 0 {
		return nil, ErrInvalidN
	}
	if len(query) != db.store.Dim() {
		return nil, &ErrDimensionMismatch{Expected: db.store.Dim(), Actual: len(query)}
	}
	if n == 0 {
		return []int32{}, nil
	}

	kernel := db.kernel
	count := db.store.Count()

	// Bounded max-heap: the root is the current worst of the best n.
	// The heap never holds more than min(n, count) items, so size the
	// allocation by that, not by a caller-supplied n.
	alloc := n
	if count < uint64(alloc) {
		alloc = int(count)
	}
	h := queue.NewMax(alloc)
	for slot := uint32(0); uint64(slot) < count; slot++ {
		key, vec, err := db.store.RowRaw(slot)
		if err != nil {
			panic(err) // slot < count, cannot happen
		}
		// Skip tombstoned rows and stale shadow slots of re-inserted keys.
		if live, ok := db.index[key]; !ok || live != slot {
			continue
		}

		dist := kernel(query, vec)
		if h.Len() < n {
			h.PushItem(queue.Item{Key: key, Distance: dist, Slot: slot})
		} else if top, _ := h.TopItem(); dist < top.Distance {
			h.PopItem()
			h.PushItem(queue.Item{Key: key, Distance: dist, Slot: slot})
		}
	}

	// Drain worst-first, then reverse into ascending distance order.
	keys := make([]int32, h.Len())
	for i := len(keys) - 1; i >= 0; i-- {
		item, _ := h.PopItem()
		keys[i] = int32(item.Key)
	}

	return keys, nil
}

// Flush forces dirty pages of the data file to stable storage without
// closing.
func (db *DB) Flush() error {
	if db.closed {
		return ErrClosed
	}
	return db.store.Flush()
}

// Close flushes the mapping, unmaps it and closes the file handle.
// The DB is unusable afterwards; there is no reopen. Idempotent.
func (db *DB) Close() error {
	if db.closed {
		return nil
	}
	db.closed = true

	err := db.store.Close()
	db.index = nil

	if err != nil {
		db.logger.Error("close failed", "error", err)
	} else {
		db.logger.Info("database closed")
	}
	return err
}
