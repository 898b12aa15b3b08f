// Package redboxdb is an embedded, single-node vector database. It
// stores fixed-dimensional float32 vectors in a memory-mapped file,
// identifies them by 64-bit keys, and serves exact k-nearest-neighbor
// queries by squared Euclidean distance with a SIMD-accelerated
// brute-force scan.
//
// A database is a pair of files: the primary data file (fixed 128-byte
// header plus fixed-stride rows) and an append-only tombstone log of
// deleted keys. Deletes are soft: the row slot is never reclaimed, the
// key is logged and filtered out of queries. A deleted key may be
// re-inserted.
//
// One DB instance assumes exclusive access to its files and performs no
// internal locking: a single writer and a single reader at a time.
// Callers that multiplex a DB across goroutines or connections must
// serialize access (see the server package).
package redboxdb
