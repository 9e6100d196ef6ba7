package model

import (
	"errors"
	"fmt"
)

// Kind is a stable error category for programmatic handling.
//
// Kind implements error so callers can branch with errors.Is:
//
//	if errors.Is(err, model.KindDomain) { ... }
type Kind string

const (
	KindArgument   Kind = "argument"   // Malformed constructor or fusion arguments
	KindDomain     Kind = "domain"     // Input outside a mapper's accepted domain
	KindLookup     Kind = "lookup"     // Label or identifier not found
	KindValidation Kind = "validation" // Judgment invariant violated
	KindFormat     Kind = "format"     // Document shape, type tag or version mismatch
)

func (k Kind) Error() string {
	return string(k) + " error"
}

// Error is the structured error returned by every core operation.
//
// Message is for humans; do not match on it. Subject names the offending
// label, field or identifier when there is one.
type Error struct {
	Kind    Kind
	Message string
	Subject string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Kind.Error() + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches a Kind target, so errors.Is(err, KindLookup) works through wrapping.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && e != nil && e.Kind == k
}

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ArgumentError reports malformed arguments.
func ArgumentError(format string, args ...any) error {
	return Errorf(KindArgument, format, args...)
}

// DomainError reports an input outside the accepted domain.
func DomainError(format string, args ...any) error {
	return Errorf(KindDomain, format, args...)
}

// ValidationError reports a violated judgment invariant.
func ValidationError(format string, args ...any) error {
	return Errorf(KindValidation, format, args...)
}

// FormatError reports a malformed document.
func FormatError(format string, args ...any) error {
	return Errorf(KindFormat, format, args...)
}

// LookupError reports a missing label or identifier.
func LookupError(subject, format string, args ...any) error {
	e := Errorf(KindLookup, format, args...)
	e.Subject = subject
	return e
}

// WrapFormat wraps a decoding failure as a format error.
func WrapFormat(cause error, format string, args ...any) error {
	e := Errorf(KindFormat, format, args...)
	e.Cause = cause
	return e
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	return errors.Is(err, kind)
}

// KindOf returns the Kind of a structured error, or "" if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}
