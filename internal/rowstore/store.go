package rowstore

import (
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	"github.com/hupe1980/redboxdb/internal/mmap"
)

// Store is the mapped row store backing one database.
type Store struct {
	f      *os.File
	m      *mmap.Mapping
	data   []byte
	dim    int
	stride int
	closed bool
}

// Open opens or creates the data file at path.
//
// A missing or empty file is grown to HeaderSize + Stride(dim)*capacity
// bytes and its header initialized (auto-id counter starts at 1). An
// existing file is validated against dim; a mismatch fails with
// ErrDimensionMismatch and leaves the file unmodified.
func Open(path string, dim, capacity int) (*Store, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("rowstore: dimension must be positive, got %d", dim)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("rowstore: capacity must be positive, got %d", capacity)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	stride := Stride(dim)
	size := fi.Size()

	fresh := size == 0
	if fresh {
		size = int64(HeaderSize + stride*capacity)
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, err
		}
	}

	m, err := mmap.Map(f, int(size))
	if err != nil {
		f.Close()
		return nil, err
	}

	s := &Store{
		f:      f,
		m:      m,
		data:   m.Bytes(),
		dim:    dim,
		stride: stride,
	}

	if fresh {
		s.setHeaderUint64(offCapacity, uint64(capacity))
		s.setHeaderUint64(offDim, uint64(dim))
		s.setHeaderUint64(offTypeSize, ComponentSize)
		s.setHeaderUint64(offNextID, 1)
		return s, nil
	}

	if err := s.validateHeader(int(size)); err != nil {
		m.Close()
		f.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) validateHeader(fileSize int) error {
	if fileSize < HeaderSize {
		return fmt.Errorf("%w: file shorter than header (%d bytes)", ErrCorruptHeader, fileSize)
	}
	if got := s.headerUint64(offDim); got != uint64(s.dim) {
		return &ErrDimensionMismatch{Expected: s.dim, Actual: int(got)}
	}
	if got := s.headerUint64(offTypeSize); got != ComponentSize {
		return fmt.Errorf("%w: data type size %d, want %d", ErrCorruptHeader, got, ComponentSize)
	}
	count := s.headerUint64(offCount)
	capacity := s.headerUint64(offCapacity)
	if count > capacity {
		return fmt.Errorf("%w: vector count %d exceeds capacity %d", ErrCorruptHeader, count, capacity)
	}
	if need := uint64(HeaderSize) + capacity*uint64(s.stride); uint64(fileSize) < need {
		return fmt.Errorf("%w: file is %d bytes, capacity %d needs %d", ErrCorruptHeader, fileSize, capacity, need)
	}
	return nil
}

// Count returns the number of appended rows (live and tombstoned).
func (s *Store) Count() uint64 {
	return s.headerUint64(offCount)
}

// Capacity returns the row capacity the file was created with.
func (s *Store) Capacity() uint64 {
	return s.headerUint64(offCapacity)
}

// Dim returns the fixed vector dimension.
func (s *Store) Dim() int {
	return s.dim
}

// NextID returns the auto-assign counter without advancing it.
func (s *Store) NextID() uint64 {
	return s.headerUint64(offNextID)
}

// NextIDFetchAdd returns the auto-assign counter and advances it by one,
// writing the new value back through the mapping. Safe under the
// single-writer model; a multi-writer future would need a CAS here.
func (s *Store) NextIDFetchAdd() uint64 {
	id := s.headerUint64(offNextID)
	s.setHeaderUint64(offNextID, id+1)
	return id
}

// SetNextID raises the auto-assign counter to id if it is ahead of the
// current value. Used when rebuilding a file from a snapshot.
func (s *Store) SetNextID(id uint64) {
	if id > s.headerUint64(offNextID) {
		s.setHeaderUint64(offNextID, id)
	}
}

// Append writes a new row at the end of the data region and returns the
// slot it was written to.
func (s *Store) Append(key uint64, values []float32) (uint32, error) {
	if len(values) != s.dim {
		return 0, &ErrDimensionMismatch{Expected: s.dim, Actual: len(values)}
	}
	count := s.Count()
	capacity := s.Capacity()
	if count == capacity {
		return 0, &ErrCapacityExceeded{Capacity: capacity}
	}

	off := HeaderSize + int(count)*s.stride
	binary.LittleEndian.PutUint64(s.data[off:off+KeySize], key)
	copy(s.vectorAt(off+KeySize), values)
	s.setHeaderUint64(offCount, count+1)

	return uint32(count), nil
}

// Overwrite replaces the floats of an existing row in place, leaving the
// key unchanged. The row count is untouched.
func (s *Store) Overwrite(slot uint32, values []float32) error {
	if len(values) != s.dim {
		return &ErrDimensionMismatch{Expected: s.dim, Actual: len(values)}
	}
	count := s.Count()
	if uint64(slot) >= count {
		return &ErrOutOfBounds{Slot: slot, Count: count}
	}

	off := HeaderSize + int(slot)*s.stride
	copy(s.vectorAt(off+KeySize), values)
	return nil
}

// RowRaw returns the key and a zero-copy float32 view of the row at
// slot. The view borrows the mapping and is valid until Close; callers
// must not retain it across the store's lifetime or mutate it.
func (s *Store) RowRaw(slot uint32) (uint64, []float32, error) {
	count := s.Count()
	if uint64(slot) >= count {
		return 0, nil, &ErrOutOfBounds{Slot: slot, Count: count}
	}

	off := HeaderSize + int(slot)*s.stride
	key := binary.LittleEndian.Uint64(s.data[off : off+KeySize])
	return key, s.vectorAt(off + KeySize), nil
}

// vectorAt returns the float32 view starting at byte offset off.
//
// The data region starts at 128 and the stride is 8+4D, so every vector
// is 4-byte aligned within the page-aligned mapping. As with the rest of
// the on-disk format, the bytes are little-endian; the cast assumes a
// little-endian host.
func (s *Store) vectorAt(off int) []float32 {
	return unsafe.Slice((*float32)(unsafe.Pointer(&s.data[off])), s.dim)
}

// Flush forces dirty pages of the mapping to stable storage.
func (s *Store) Flush() error {
	if s.closed {
		return ErrClosed
	}
	return s.m.Flush()
}

// Close flushes the mapping, unmaps it and closes the file handle, in
// that order. It is idempotent.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.m.Close()
	s.data = nil
	if closeErr := s.f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
