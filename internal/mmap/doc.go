// Package mmap provides a read-write memory mapping over a file with an
// explicit flush, abstracting the platform primitives (mmap/msync on unix,
// CreateFileMapping/FlushViewOfFile on windows).
//
// A Mapping owns the mapped byte slice. The slice returned by Bytes is
// valid only until Close; writes through it reach the file via the OS
// page cache and are forced to stable storage by Flush.
package mmap
