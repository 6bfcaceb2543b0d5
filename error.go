package napi

import (
	"errors"
	"fmt"
)

// Status is a host status code as returned by every Env operation.
// Host implementations return a non-ok Status as the error of a failed call
// and record the details for GetLastErrorInfo.
type Status int

const (
	StatusOK Status = iota
	StatusInvalidArg
	StatusObjectExpected
	StatusStringExpected
	StatusNameExpected
	StatusFunctionExpected
	StatusNumberExpected
	StatusBooleanExpected
	StatusArrayExpected
	StatusGenericFailure
	StatusPendingException
	StatusCancelled
	StatusEscapeCalledTwice
	StatusHandleScopeMismatch
	StatusCallbackScopeMismatch
	StatusQueueFull
	StatusClosing
	StatusBigintExpected
)

var statusNames = [...]string{
	StatusOK:                    "ok",
	StatusInvalidArg:            "invalid argument",
	StatusObjectExpected:        "object expected",
	StatusStringExpected:        "string expected",
	StatusNameExpected:          "name expected",
	StatusFunctionExpected:      "function expected",
	StatusNumberExpected:        "number expected",
	StatusBooleanExpected:       "boolean expected",
	StatusArrayExpected:         "array expected",
	StatusGenericFailure:        "generic failure",
	StatusPendingException:      "pending exception",
	StatusCancelled:             "cancelled",
	StatusEscapeCalledTwice:     "escape called twice",
	StatusHandleScopeMismatch:   "handle scope mismatch",
	StatusCallbackScopeMismatch: "callback scope mismatch",
	StatusQueueFull:             "queue full",
	StatusClosing:               "closing",
	StatusBigintExpected:        "bigint expected",
}

// Error implements the error interface so a host can return a Status directly.
func (s Status) Error() string {
	return "napi: " + s.text()
}

func (s Status) text() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status %d", int(s))
}

// ErrorKind is the closed set of conversion and host failure categories.
type ErrorKind int

const (
	Unknown ErrorKind = iota
	InvalidArgument
	ObjectExpected
	StringExpected
	NameExpected
	FunctionExpected
	NumberExpected
	BooleanExpected
	ArrayExpected
	GenericFailure
	PendingException
	Cancelled
)

var kindNames = [...]string{
	Unknown:          "Unknown",
	InvalidArgument:  "InvalidArgument",
	ObjectExpected:   "ObjectExpected",
	StringExpected:   "StringExpected",
	NameExpected:     "NameExpected",
	FunctionExpected: "FunctionExpected",
	NumberExpected:   "NumberExpected",
	BooleanExpected:  "BooleanExpected",
	ArrayExpected:    "ArrayExpected",
	GenericFailure:   "GenericFailure",
	PendingException: "PendingException",
	Cancelled:        "Cancelled",
}

// String returns the kind name, which is also used as the `code` of thrown errors.
func (k ErrorKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[Unknown]
}

// Error lets an ErrorKind be used as an errors.Is target.
func (k ErrorKind) Error() string {
	return "napi: " + k.String()
}

// KindFromStatus maps a host status to its ErrorKind.
// Statuses without a dedicated kind collapse to GenericFailure.
func KindFromStatus(s Status) ErrorKind {
	switch s {
	case StatusInvalidArg:
		return InvalidArgument
	case StatusObjectExpected:
		return ObjectExpected
	case StatusStringExpected:
		return StringExpected
	case StatusNameExpected:
		return NameExpected
	case StatusFunctionExpected:
		return FunctionExpected
	case StatusNumberExpected:
		return NumberExpected
	case StatusBooleanExpected:
		return BooleanExpected
	case StatusArrayExpected:
		return ArrayExpected
	case StatusPendingException:
		return PendingException
	case StatusCancelled:
		return Cancelled
	default:
		return GenericFailure
	}
}

// ExtendedErrorInfo is the host's record of the last failed operation.
type ExtendedErrorInfo struct {
	Message    string
	EngineCode uint32
	Status     Status
}

// Error is a conversion or host failure. It is immutable once constructed and
// carries enough to be thrown back into the host.
type Error struct {
	Message    string
	EngineCode uint32
	Kind       ErrorKind
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind.String(), e.Message)
}

// Is reports whether target is the same ErrorKind or an *Error of the same kind.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case ErrorKind:
		return e.Kind == t
	case *Error:
		return e.Kind == t.Kind && (t.Message == "" || t.Message == e.Message)
	}
	return false
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Kind: kind}
}

// argCountError reports an arity mismatch.
func argCountError(expected, got int) *Error {
	noun := "arguments"
	if expected == 1 {
		noun = "argument"
	}
	return newError(InvalidArgument, "expected %d %s, got %d", expected, noun, got)
}

// typeError reports a tag mismatch; the kind follows the expected type.
func typeError(expected, got ValueType) *Error {
	return newError(expected.expectedKind(),
		"expected argument to be of type %s, but found it to be of type %s", expected, got)
}

// KindOf extracts the ErrorKind of err, or Unknown if err is not a napi error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var s Status
	if errors.As(err, &s) {
		return KindFromStatus(s)
	}
	return Unknown
}

// check translates the error of a failed Env call into an *Error.
// Status errors are resolved through the host's last error info; when that is
// unavailable the result is a GenericFailure.
func check(env Env, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var status Status
	if !errors.As(err, &status) {
		return &Error{Message: err.Error(), Kind: GenericFailure}
	}
	info, infoErr := env.GetLastErrorInfo()
	if infoErr != nil || info == nil {
		return &Error{Message: status.Error(), Kind: GenericFailure}
	}
	msg := info.Message
	if msg == "" {
		msg = status.Error()
	}
	return &Error{Message: msg, EngineCode: info.EngineCode, Kind: KindFromStatus(status)}
}
