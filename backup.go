package redboxdb

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Backup snapshot format, inside a zstd stream:
//
//	magic "RBXB", version u8, dim u32, live-row count u64, next_id u64,
//	then count rows of (key u64, f32[dim]), all little-endian.
//
// Only live rows are carried: tombstoned rows, shadowed duplicate slots
// and the tombstone log itself are left behind, so restoring compacts
// the database.
var backupMagic = [4]byte{'R', 'B', 'X', 'B'}

const backupVersion = 1

// ErrBadSnapshot is returned by Restore when the stream is not a valid
// backup snapshot.
var ErrBadSnapshot = errors.New("redboxdb: invalid backup snapshot")

// Backup writes a compressed logical snapshot of the live rows to w.
func (db *DB) Backup(w io.Writer) error {
	rows, err := db.backup(w)
	db.logger.LogBackup(context.Background(), rows, err)
	return err
}

func (db *DB) backup(w io.Writer) (uint64, error) {
	if db.closed {
		return 0, ErrClosed
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return 0, err
	}

	dim := db.store.Dim()

	header := make([]byte, 4+1+4+8+8)
	copy(header, backupMagic[:])
	header[4] = backupVersion
	binary.LittleEndian.PutUint32(header[5:], uint32(dim))
	binary.LittleEndian.PutUint64(header[9:], uint64(len(db.index)))
	binary.LittleEndian.PutUint64(header[17:], db.store.NextID())
	if _, err := zw.Write(header); err != nil {
		zw.Close()
		return 0, err
	}

	row := make([]byte, rowSnapshotSize(dim))
	var written uint64
	count := db.store.Count()
	for slot := uint32(0); uint64(slot) < count; slot++ {
		key, vec, err := db.store.RowRaw(slot)
		if err != nil {
			panic(err) // slot < count, cannot happen
		}
		// Skip tombstoned rows and stale shadow slots of re-inserted keys.
		if live, ok := db.index[key]; !ok || live != slot {
			continue
		}

		binary.LittleEndian.PutUint64(row, key)
		for i, v := range vec {
			binary.LittleEndian.PutUint32(row[8+i*4:], math.Float32bits(v))
		}
		if _, err := zw.Write(row); err != nil {
			zw.Close()
			return written, err
		}
		written++
	}

	return written, zw.Close()
}

func rowSnapshotSize(dim int) int {
	return 8 + dim*4
}

// Restore creates a fresh database at path from a snapshot produced by
// Backup. The target file must not already contain data. The restored
// database has no tombstones, a compacted row region, and an auto-id
// counter resuming past both the snapshot's counter and its largest key.
func Restore(r io.Reader, path string, capacity int, optFns ...Option) (*DB, error) {
	if fi, err := os.Stat(path); err == nil && fi.Size() > 0 {
		return nil, fmt.Errorf("redboxdb: restore target %s already exists", path)
	}

	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	header := make([]byte, 4+1+4+8+8)
	if _, err := io.ReadFull(zr, header); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", ErrBadSnapshot, err)
	}
	if [4]byte(header[:4]) != backupMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrBadSnapshot)
	}
	if header[4] != backupVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadSnapshot, header[4])
	}

	dim := int(binary.LittleEndian.Uint32(header[5:]))
	count := binary.LittleEndian.Uint64(header[9:])
	nextID := binary.LittleEndian.Uint64(header[17:])

	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension %d", ErrBadSnapshot, dim)
	}
	if uint64(capacity) < count {
		return nil, fmt.Errorf("redboxdb: capacity %d too small for %d snapshot rows", capacity, count)
	}

	db, err := Open(path, dim, capacity, optFns...)
	if err != nil {
		return nil, err
	}

	row := make([]byte, rowSnapshotSize(dim))
	vec := make([]float32, dim)
	var maxKey uint64
	for i := uint64(0); i < count; i++ {
		if _, err := io.ReadFull(zr, row); err != nil {
			db.Close()
			os.Remove(path)
			return nil, fmt.Errorf("%w: truncated at row %d: %v", ErrBadSnapshot, i, err)
		}

		key := binary.LittleEndian.Uint64(row)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(row[8+j*4:]))
		}

		if err := db.Insert(key, vec); err != nil {
			db.Close()
			os.Remove(path)
			return nil, err
		}
		if key > maxKey {
			maxKey = key
		}
	}

	db.store.SetNextID(nextID)
	db.store.SetNextID(maxKey + 1)

	return db, nil
}
