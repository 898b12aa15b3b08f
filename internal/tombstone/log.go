// Package tombstone implements the soft-deletion log: an append-only
// file of deleted keys, 8 bytes each, little-endian, no header.
//
// The log is read once at open into an in-memory set and appended to on
// each delete. It is never rewritten or compacted; re-inserting a key
// clears it from the in-memory set only.
package tombstone

import (
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// KeySize is the byte width of one tombstone record.
const KeySize = 8

// Log appends deleted keys to the file at path. The file is opened per
// append and synced before close, so a tombstone survives a crash
// immediately after the delete that wrote it.
type Log struct {
	path string
}

// New returns a Log for the file at path. The file need not exist yet;
// the first append creates it.
func New(path string) *Log {
	return &Log{path: path}
}

// Path returns the log's file path.
func (l *Log) Path() string {
	return l.path
}

// Load reads the log into a fresh set of deleted keys. A missing file
// yields an empty set. A truncated trailing record (file length not a
// multiple of 8) is ignored; the surviving prefix is still honored.
func (l *Log) Load() (*roaring64.Bitmap, error) {
	deleted := roaring64.New()

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return deleted, nil
		}
		return nil, err
	}
	defer f.Close()

	var buf [KeySize]byte
	for {
		if _, err := io.ReadFull(f, buf[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return deleted, nil
			}
			return nil, err
		}
		deleted.Add(binary.LittleEndian.Uint64(buf[:]))
	}
}

// Append durably records key as deleted: open in append mode, write the
// 8-byte record, sync, close.
func (l *Log) Append(key uint64) error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}

	var buf [KeySize]byte
	binary.LittleEndian.PutUint64(buf[:], key)

	if _, err := f.Write(buf[:]); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
