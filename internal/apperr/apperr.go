package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure so the HTTP boundary can map it to the
// right status code without inspecting message strings.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindForbidden
	KindInvalidState
	KindUnsupportedProvider
	KindStorage
)

// Error is the failure type returned by the lifecycle engines.
type Error struct {
	Kind   Kind
	Msg    string
	Fields map[string]string // field-level validation detail, when available
	Err    error             // wrapped cause (storage errors)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a ValidationError with optional field detail.
func Validation(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Msg: msg, Fields: fields}
}

// NotFound returns a NotFound error for the named entity.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Msg: entity + " not found"}
}

// Forbidden returns a Forbidden error (authenticated but unauthorized).
func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

// InvalidState returns an InvalidState error (operation not legal for the
// entity's current lifecycle state).
func InvalidState(msg string) *Error {
	return &Error{Kind: KindInvalidState, Msg: msg}
}

// UnsupportedProvider returns an error for an unknown payment provider value.
func UnsupportedProvider(provider string) *Error {
	return &Error{Kind: KindUnsupportedProvider, Msg: "unsupported payment provider: " + provider}
}

// Storage wraps a persistence failure. The cause is kept for logs but the
// message surfaced to callers stays generic.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Msg: "storage failure during " + op, Err: err}
}

// KindOf extracts the Kind from err, or 0 if err is not an apperr.Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsValidation(err error) bool   { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsForbidden(err error) bool    { return KindOf(err) == KindForbidden }
func IsInvalidState(err error) bool { return KindOf(err) == KindInvalidState }
func IsStorage(err error) bool      { return KindOf(err) == KindStorage }
