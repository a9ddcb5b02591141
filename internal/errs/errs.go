package errs

import (
	"errors"
	"strconv"
)

// Code is a check failure code.
type Code string

const (
	ElementNotFound   Code = "element_not_found"
	ConditionTimeout  Code = "condition_timeout"
	AssertionMismatch Code = "assertion_mismatch"
	PickerMiss        Code = "picker_miss"
	InvalidArgument   Code = "invalid_argument"
	Unavailable       Code = "unavailable"
	Internal          Code = "internal"
)

// Error is a coded check error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		if e.Err != nil {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a coded error with message and cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// Mismatch reports a read-back value that differs from the expected one.
func Mismatch(field, expected, actual string) error {
	return &Error{
		Code:    AssertionMismatch,
		Message: field + ": expected " + strconv.Quote(expected) + ", got " + strconv.Quote(actual),
	}
}

// CodeOf returns the error code, defaulting to internal.
func CodeOf(err error) Code {
	if err == nil {
		return Internal
	}
	var coded *Error
	if errors.As(err, &coded) {
		if coded.Code == "" {
			return Internal
		}
		return coded.Code
	}
	return Internal
}

// MessageOf returns the message of the outermost coded error.
// Untyped errors yield "internal error".
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// ExitCode maps error code to a process exit status. Every check failure
// exits 1.
func ExitCode(code Code) int {
	switch code {
	case InvalidArgument:
		return 2
	case Unavailable:
		return 3
	default:
		return 1
	}
}
