package redboxdb

import (
	"errors"
	"fmt"

	"github.com/hupe1980/redboxdb/internal/rowstore"
)

var (
	// ErrClosed is returned when operating on a closed database.
	ErrClosed = errors.New("redboxdb: database is closed")

	// ErrInvalidN is returned when SearchN is called with a negative n.
	ErrInvalidN = errors.New("redboxdb: n must not be negative")

	// ErrCorruptHeader is returned when an existing data file fails header
	// validation on open.
	ErrCorruptHeader = rowstore.ErrCorruptHeader
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch,
// or an open against a file created with a different dimension.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrCapacityExceeded indicates an insert against a full data file. The
// file's capacity is fixed at creation; ingesting more requires creating
// a larger database.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrCapacityExceeded struct {
	Capacity uint64
	cause    error
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("capacity exceeded: database was created for %d rows", e.Capacity)
}

func (e *ErrCapacityExceeded) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dm *rowstore.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	var ce *rowstore.ErrCapacityExceeded
	if errors.As(err, &ce) {
		return &ErrCapacityExceeded{Capacity: ce.Capacity, cause: err}
	}

	return err
}
