package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failure so callers can decide whether to retry.
type ErrorKind string

const (
	// KindValidation marks bad input. Never retried.
	KindValidation ErrorKind = "ValidationError"
	// KindInvalidTransition marks an operation requested from an illegal state.
	KindInvalidTransition ErrorKind = "InvalidTransition"
	// KindConcurrentOperation marks a busy resource. Callers may retry later.
	KindConcurrentOperation ErrorKind = "ConcurrentOperation"
	// KindTimeout marks a process or runtime call that exceeded its bound.
	KindTimeout ErrorKind = "Timeout"
	// KindExecutionFailure marks a command that exited non-zero or a runtime call that failed.
	KindExecutionFailure ErrorKind = "ExecutionFailure"
	// KindInvalidSchedule marks a malformed cron expression.
	KindInvalidSchedule ErrorKind = "InvalidSchedule"
	// KindNotFound marks a missing record.
	KindNotFound ErrorKind = "NotFound"
)

// Sentinels for errors.Is matching on the kind only.
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition}
	ErrConcurrentOperation = &Error{Kind: KindConcurrentOperation}
	ErrTimeout             = &Error{Kind: KindTimeout}
	ErrExecutionFailure    = &Error{Kind: KindExecutionFailure}
	ErrInvalidSchedule     = &Error{Kind: KindInvalidSchedule}
	ErrNotFound            = &Error{Kind: KindNotFound}
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string
	Message string
}

// Error is the typed error returned by the orchestrator, the scheduler and their adapters.
type Error struct {
	Kind   ErrorKind
	Op     string
	Msg    string
	Fields []FieldError
	Err    error
}

// NewError creates a typed error.
func NewError(kind ErrorKind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Errorf creates a typed error with a formatted message.
func Errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind to an underlying error.
// If err already carries a kind, that kind wins.
func WrapError(kind ErrorKind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		kind = typed.Kind
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	var inner *Error
	if e.Msg == "" && len(e.Fields) == 0 && errors.As(e.Err, &inner) {
		b.WriteString(e.Err.Error())
		return b.String()
	}
	b.WriteString(string(e.Kind))
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	for i, f := range e.Fields {
		if i == 0 && e.Msg == "" {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(f.Field)
		b.WriteString(" ")
		b.WriteString(f.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

// KindOf returns the kind carried by err, or an empty kind.
func KindOf(err error) ErrorKind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
