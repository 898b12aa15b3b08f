package rowstore

import (
	"errors"
	"fmt"
)

// ErrCorruptHeader is returned when an existing file's header fails
// validation on open. Wrap with context via fmt.Errorf and %w.
var ErrCorruptHeader = errors.New("rowstore: corrupt header")

// ErrClosed is returned when operating on a closed store.
var ErrClosed = errors.New("rowstore: store is closed")

// ErrDimensionMismatch indicates a vector whose length differs from the
// store's fixed dimension, or an open against a file created with a
// different dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrCapacityExceeded indicates an append against a full file.
type ErrCapacityExceeded struct {
	Capacity uint64
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("capacity exceeded: file was created for %d rows", e.Capacity)
}

// ErrOutOfBounds indicates a row access beyond the appended row count.
// This is a programmer error, not an expected runtime condition.
type ErrOutOfBounds struct {
	Slot  uint32
	Count uint64
}

func (e *ErrOutOfBounds) Error() string {
	return fmt.Sprintf("slot %d out of bounds: %d rows appended", e.Slot, e.Count)
}
