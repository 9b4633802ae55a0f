// Package apperr classifies failures so transport layers can map them without
// comparing message strings.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the category of an application error.
type Kind int

const (
	Internal Kind = iota
	NotFound
	InvalidRequest
	UpstreamFailure
	Conflict
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case InvalidRequest:
		return "invalid_request"
	case UpstreamFailure:
		return "upstream_failure"
	case Conflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Sentinels for errors.Is matching by kind.
var (
	ErrNotFound        = &Error{Kind: NotFound, Msg: "not found"}
	ErrInvalidRequest  = &Error{Kind: InvalidRequest, Msg: "invalid request"}
	ErrUpstreamFailure = &Error{Kind: UpstreamFailure, Msg: "upstream failure"}
	ErrConflict        = &Error{Kind: Conflict, Msg: "conflict"}
)

// Error carries a Kind, a user-safe message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match when target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: NotFound, Msg: fmt.Sprintf(format, args...)}
}

func Invalidf(format string, args ...any) *Error {
	return &Error{Kind: InvalidRequest, Msg: fmt.Sprintf(format, args...)}
}

func Upstream(msg string, err error) *Error {
	return &Error{Kind: UpstreamFailure, Msg: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Message returns the user-safe message of the first *Error in err's chain.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal error"
}
