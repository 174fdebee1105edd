// Package backend defines the contract of the slow external lookup that the
// cache and the coalescing queue sit in front of.
package backend

import (
	"context"
	"errors"
	"fmt"
)

// Fetcher loads the value for k from the backing system. It may take an
// arbitrary (bounded) time and fails with a *NotFoundError when k does not
// exist, or with a *TransientError (or any other error) otherwise.
type Fetcher[K comparable, V any] func(ctx context.Context, k K) (V, error)

var (
	// ErrNotFound matches every *NotFoundError via errors.Is.
	ErrNotFound = errors.New("backend: not found")
	// ErrTransient matches every *TransientError via errors.Is.
	ErrTransient = errors.New("backend: transient failure")
)

// NotFoundError reports that the backend has no record for Key.
type NotFoundError struct {
	Key any
	// Msg overrides the default message when set.
	Msg string
}

// NotFound builds a *NotFoundError for key.
func NotFound(key any) *NotFoundError { return &NotFoundError{Key: key} }

func (e *NotFoundError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("record %v not found", e.Key)
}

// Is implements errors.Is support for ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// TransientError reports a failure that may succeed on a later attempt.
type TransientError struct {
	Reason string
	Err    error
}

// Transient wraps err with a reason.
func Transient(reason string, err error) *TransientError {
	return &TransientError{Reason: reason, Err: err}
}

func (e *TransientError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *TransientError) Unwrap() error { return e.Err }

// Is implements errors.Is support for ErrTransient.
func (e *TransientError) Is(target error) bool { return target == ErrTransient }

// IsNotFound reports whether err is, or wraps, a not-found failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
