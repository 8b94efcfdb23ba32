package repositorycache

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by backing stores when no row matches and is the
// error Result.Get yields for a StatusNotFound result.
var ErrNotFound = errors.New("record not found")

// Status classifies the outcome of a repository call.
type Status int

const (
	StatusOK Status = iota
	StatusNotFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not_found"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of a repository operation. Unlike a nullable return
// it lets callers tell "absent" apart from "the operation failed".
type Result[T any] struct {
	Value  T
	Status Status
	// Err is the underlying cause for StatusNotFound and StatusFailed.
	Err error
	// Cached reports whether Value was served from the cache.
	Cached bool
	// Persisted reports that a write reached the backing store. A failed
	// result can still be persisted when a cache step after the commit
	// failed; Value then holds the stored record.
	Persisted bool
}

func ok[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: StatusOK}
}

func hit[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: StatusOK, Cached: true}
}

func written[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: StatusOK, Persisted: true}
}

// committed is a failure raised after the backing store accepted the write.
func committed[T any](v T, err error) Result[T] {
	return Result[T]{Value: v, Status: StatusFailed, Err: err, Persisted: true}
}

func notFound[T any](err error) Result[T] {
	if err == nil {
		err = ErrNotFound
	}
	return Result[T]{Status: StatusNotFound, Err: err}
}

func failed[T any](err error) Result[T] {
	return Result[T]{Status: StatusFailed, Err: err}
}

// OK reports whether the operation succeeded.
func (r Result[T]) OK() bool { return r.Status == StatusOK }

// NotFound reports whether the target record does not exist.
func (r Result[T]) NotFound() bool { return r.Status == StatusNotFound }

// Failed reports whether the operation failed for a reason other than absence.
func (r Result[T]) Failed() bool { return r.Status == StatusFailed }

// Get converts the result into the conventional value, error pair. A not
// found result yields an error matching ErrNotFound.
func (r Result[T]) Get() (T, error) {
	switch r.Status {
	case StatusOK:
		return r.Value, nil
	case StatusNotFound:
		var zero T
		if errors.Is(r.Err, ErrNotFound) {
			return zero, r.Err
		}
		return zero, fmt.Errorf("%w: %v", ErrNotFound, r.Err)
	default:
		var zero T
		if r.Err == nil {
			return zero, errors.New("repository operation failed")
		}
		return zero, r.Err
	}
}
