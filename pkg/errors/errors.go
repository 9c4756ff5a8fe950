// Package errors provides structured error handling for Strata.
//
// Every fallible operation in the library returns an *Error whose Type tells
// the caller which class of failure occurred. Message carries the human
// readable explanation; callers that only care about the class branch on
// IsType and ignore it.
package errors

import (
	"errors"
	"runtime"

	stringpool "github.com/ajitpratap0/strata/pkg/strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeInvalidArgument represents malformed input, unsupported
	// type combinations and calls made in the wrong state
	ErrorTypeInvalidArgument ErrorType = "invalid_argument"
	// ErrorTypeNotRepresentable represents values that do not fit the
	// target storage exactly
	ErrorTypeNotRepresentable ErrorType = "not_representable"
	// ErrorTypeOverflow represents offsets or lengths exceeding their integer width
	ErrorTypeOverflow ErrorType = "overflow"
	// ErrorTypeOutOfMemory represents allocation failures
	ErrorTypeOutOfMemory ErrorType = "out_of_memory"
	// ErrorTypeValidation represents structural or content validation failures
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeNotFound represents missing keys
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeEndOfStream represents an exhausted stream
	ErrorTypeEndOfStream ErrorType = "end_of_stream"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeIO represents failures reading or writing external data
	ErrorTypeIO ErrorType = "io"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return stringpool.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return stringpool.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: stringpool.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, errType ErrorType, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, errType, stringpool.Sprintf(format, args...))
}

// Prefix returns err with its message prefixed, keeping the type. Errors that
// are not *Error are wrapped as internal.
func Prefix(err error, prefix string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		return Wrap(err, ErrorTypeInternal, prefix)
	}
	return &Error{
		Type:    e.Type,
		Message: prefix + e.Message,
		Cause:   e.Cause,
		Details: e.Details,
		Stack:   e.Stack,
	}
}

// TypeOf returns the type of err, or "" when err is not an *Error
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Type
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// IsInvalidArgument reports whether err is an invalid-argument error
func IsInvalidArgument(err error) bool { return IsType(err, ErrorTypeInvalidArgument) }

// IsNotRepresentable reports whether err is a not-representable error
func IsNotRepresentable(err error) bool { return IsType(err, ErrorTypeNotRepresentable) }

// IsOverflow reports whether err is an overflow error
func IsOverflow(err error) bool { return IsType(err, ErrorTypeOverflow) }

// IsOutOfMemory reports whether err is an out-of-memory error
func IsOutOfMemory(err error) bool { return IsType(err, ErrorTypeOutOfMemory) }

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return IsType(err, ErrorTypeValidation) }

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool { return IsType(err, ErrorTypeNotFound) }

// IsIO reports whether err is an I/O error
func IsIO(err error) bool { return IsType(err, ErrorTypeIO) }

// Is is errors.Is re-exported so callers need a single import
func Is(err, target error) bool { return errors.Is(err, target) }

// As is errors.As re-exported so callers need a single import
func As(err error, target interface{}) bool { return errors.As(err, target) }

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
