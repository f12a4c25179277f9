package cachekit

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by an operation is an *Error whose Kind is
// one of these, so errors.Is(err, ErrBackend) works alongside errors.Is on the
// wrapped cause.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidCacheEntry = errors.New("invalid cache entry")
	ErrVersionMismatch   = errors.New("cache entry version mismatch")
	ErrSerialization     = errors.New("serialization failed")
	ErrDeserialization   = errors.New("deserialization failed")
	ErrBackend           = errors.New("backend error")
	ErrRepository        = errors.New("repository error")
	ErrTimeout           = errors.New("timeout")
	ErrConfig            = errors.New("configuration error")
)

type Error struct {
	Kind error  // one of the Err* kinds above
	Key  string // cache key, when known
	Op   string // step that failed, e.g. "backend get", "on_hit"
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("cachekit: ")
	b.WriteString(e.Kind.Error())
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, " [key=%q]", e.Key)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the kind of err, or nil if err did not come from cachekit.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

// newError wraps cause. Deadline overruns reported by a collaborator are
// reclassified as ErrTimeout whatever step they surfaced in.
func newError(kind error, key, op string, cause error) *Error {
	if cause != nil && errors.Is(cause, context.DeadlineExceeded) {
		kind = ErrTimeout
	}
	return &Error{Kind: kind, Key: key, Op: op, Err: cause}
}

// hookError keeps the kind of a cachekit error returned by a hook and wraps
// anything else as a validation failure. The hook's error is always kept
// whole as the cause.
func hookError(key, op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		if e.Key != "" {
			return err
		}
		return &Error{Kind: e.Kind, Key: key, Op: op, Err: err}
	}
	return newError(ErrValidation, key, op, err)
}

var errNoBackend = errors.New("backend is required")
