package usbb

import (
	"errors"
	"fmt"
)

// ErrorCode is the closed set of domain failures surfaced to callers.
type ErrorCode string

const (
	ErrExistingSource         ErrorCode = "existingSource"
	ErrPathNotSupported       ErrorCode = "pathNotSupported"
	ErrDevicePathDoesNotExist ErrorCode = "devicePathDoesNotExist"
	ErrDeviceIsNotOnline      ErrorCode = "deviceIsNotOnline"
	ErrDeviceDoesNotExist     ErrorCode = "deviceDoesNotExist"
	ErrPathDoesNotMatchDevice ErrorCode = "pathDoesNotMatchDevice"
	ErrUnexpected             ErrorCode = "unexpectedError"
)

var defaultMessages = map[ErrorCode]string{
	ErrExistingSource:         "a device already exists at this path",
	ErrPathNotSupported:       "backup devices must be addressed through a drive letter",
	ErrDevicePathDoesNotExist: "device path does not exist",
	ErrDeviceIsNotOnline:      "device is not online",
	ErrDeviceDoesNotExist:     "device does not exist",
	ErrPathDoesNotMatchDevice: "path does not contain this device",
	ErrUnexpected:             "unexpected error",
}

// Error is a domain error with a stable code.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a domain error. An empty message uses the code's default.
func NewError(code ErrorCode, message string) *Error {
	if message == "" {
		message = defaultMessages[code]
	}
	return &Error{Code: code, Message: message}
}

// Errorf creates a domain error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the domain code carried by err, or ErrUnexpected.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrUnexpected
}

// ErrorInfo is the error half of a Result.
type ErrorInfo struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Result is the envelope returned by mutations: a nil Error means success.
type Result struct {
	Error *ErrorInfo `json:"error"`
}

// OK reports whether the result carries no error.
func (r Result) OK() bool { return r.Error == nil }

// ToResult converts err into a Result. Errors that are not domain errors are
// logged and reported as unexpectedError.
func ToResult(err error, logger Logger) Result {
	if err == nil {
		return Result{}
	}
	var e *Error
	if errors.As(err, &e) {
		return Result{Error: &ErrorInfo{Code: e.Code, Message: e.Message}}
	}
	if logger != nil {
		logger.Error("unexpected error", "error", err)
	}
	return Result{Error: &ErrorInfo{Code: ErrUnexpected, Message: err.Error()}}
}
