// Package rowstore implements the memory-mapped primary data file: a
// fixed 128-byte header followed by a contiguous array of fixed-stride
// rows (u64 key, f32[D]), all little-endian.
//
// The file is sized for its full capacity at creation and never grows.
// Rows are appended by bumping the header's vector count; an overwrite
// mutates a row's floats in place and leaves the key untouched. Row
// reads are zero-copy: RowRaw returns a float32 view borrowed from the
// mapping, valid until Close.
//
// The store performs no synchronization; callers serialize access
// (single-writer model).
package rowstore
