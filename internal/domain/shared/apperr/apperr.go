package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies failures so transports can map them without knowing the domain.
type Kind string

const (
	KindValidation       Kind = "VALIDATION"
	KindNotFound         Kind = "NOT_FOUND"
	KindCapacityExceeded Kind = "CAPACITY_EXCEEDED"
	KindUnavailable      Kind = "UNAVAILABLE"
	KindUnauthorized     Kind = "UNAUTHORIZED"
	KindInvalidState     Kind = "INVALID_STATE"
	KindCurrencyMismatch Kind = "CURRENCY_MISMATCH"
	KindConflict         Kind = "CONFLICT"
	KindTransient        Kind = "TRANSIENT"
)

var (
	ErrValidation       = &Error{Kind: KindValidation, Msg: "validation failed"}
	ErrNotFound         = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrCapacityExceeded = &Error{Kind: KindCapacityExceeded, Msg: "capacity exceeded"}
	ErrUnavailable      = &Error{Kind: KindUnavailable, Msg: "unavailable"}
	ErrUnauthorized     = &Error{Kind: KindUnauthorized, Msg: "unauthorized"}
	ErrInvalidState     = &Error{Kind: KindInvalidState, Msg: "invalid state"}
	ErrCurrencyMismatch = &Error{Kind: KindCurrencyMismatch, Msg: "currency mismatch"}
	ErrConflict         = &Error{Kind: KindConflict, Msg: "conflict"}
	ErrTransient        = &Error{Kind: KindTransient, Msg: "transient failure"}
)

// Error is a classified failure. Two errors match under errors.Is when their kinds are equal.
type Error struct {
	Kind    Kind
	Msg     string
	Details map[string]any
	Err     error
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithDetail returns a copy carrying an extra detail entry.
func (e *Error) WithDetail(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Kind: e.Kind, Msg: e.Msg, Details: details, Err: e.Err}
}

// KindOf reports the kind of the first classified error in the chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// DetailsOf collects details from the first classified error in the chain.
func DetailsOf(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}
