// Package apperr defines the typed failures a pipeline run can end with.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies why a pipeline stage failed.
type Kind string

const (
	NotFound             Kind = "NotFound"
	UpstreamUnavailable  Kind = "UpstreamUnavailable"
	NoContent            Kind = "NoContent"
	PersistenceError     Kind = "PersistenceError"
	AnalysisBlocked      Kind = "AnalysisBlocked"
	AnalysisBackendError Kind = "AnalysisBackendError"
	// CacheError never reaches callers; cache failures are logged and absorbed.
	CacheError Kind = "CacheError"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrNotFound            = &Error{Kind: NotFound}
	ErrUpstreamUnavailable = &Error{Kind: UpstreamUnavailable}
	ErrNoContent           = &Error{Kind: NoContent}
	ErrPersistence         = &Error{Kind: PersistenceError}
	ErrAnalysisBlocked     = &Error{Kind: AnalysisBlocked}
	ErrAnalysisBackend     = &Error{Kind: AnalysisBackendError}
	ErrCache               = &Error{Kind: CacheError}
)

// Error is the single structured failure surfaced to callers.
type Error struct {
	Kind    Kind
	Message string
	// Reason carries the backend's refusal reason for AnalysisBlocked.
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	} else {
		msg = string(e.Kind) + ": " + msg
	}
	if e.Reason != "" {
		msg += " (reason: " + e.Reason + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match when target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Blocked creates an AnalysisBlocked error with the backend's reason attached.
func Blocked(reason string) *Error {
	return &Error{
		Kind:    AnalysisBlocked,
		Message: "analysis backend refused the prompt",
		Reason:  reason,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
