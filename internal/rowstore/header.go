package rowstore

import "encoding/binary"

// On-disk header layout (all fields little-endian u64):
//
//	offset 0   vector_count   rows appended so far (live + tombstoned)
//	offset 8   max_capacity   rows the file was sized for at creation
//	offset 16  dimensions     D
//	offset 24  data_type_size 4 (bytes per vector component)
//	offset 32  next_id        auto-assign counter (next value handed out)
//	offset 40  88 reserved bytes, zero on creation, ignored on read
//
// The data region starts at offset 128.
const (
	HeaderSize = 128

	offCount    = 0
	offCapacity = 8
	offDim      = 16
	offTypeSize = 24
	offNextID   = 32

	// KeySize is the byte width of a row key.
	KeySize = 8
	// ComponentSize is the byte width of one vector component (float32).
	ComponentSize = 4
)

// Stride returns the byte width of one row for the given dimension.
func Stride(dim int) int {
	return KeySize + dim*ComponentSize
}

func (s *Store) headerUint64(off int) uint64 {
	return binary.LittleEndian.Uint64(s.data[off : off+8])
}

func (s *Store) setHeaderUint64(off int, v uint64) {
	binary.LittleEndian.PutUint64(s.data[off:off+8], v)
}
