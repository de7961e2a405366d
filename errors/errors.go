// Package errors classifies the failures of the viewer.
//
// Every error crossing a package boundary is transient (the SPARQL endpoint
// or the network may recover), invalid (the identifier, page or configuration
// is wrong) or fatal (the process cannot serve). The Wrap helpers add a
// "component.method: action failed" prefix and keep the cause reachable with
// errors.Is and errors.As.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass tells callers how to react to an error.
type ErrorClass int

const (
	// ErrorTransient may succeed when retried.
	ErrorTransient ErrorClass = iota
	// ErrorInvalid will fail again with the same input.
	ErrorInvalid
	// ErrorFatal stops the process.
	ErrorFatal
)

var classNames = map[ErrorClass]string{
	ErrorTransient: "transient",
	ErrorInvalid:   "invalid",
	ErrorFatal:     "fatal",
}

func (ec ErrorClass) String() string {
	if name, ok := classNames[ec]; ok {
		return name
	}
	return "unknown"
}

// Label backend
var (
	ErrConnectionTimeout  = errors.New("connection timeout")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrUnexpectedStatus   = errors.New("unexpected backend status")
	ErrParsingFailed      = errors.New("parsing failed")
	ErrResourceExhausted  = errors.New("resource exhausted")
)

// Input
var (
	ErrInvalidData     = errors.New("invalid data format")
	ErrRequestTooLarge = errors.New("request too large")
)

// Configuration
var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrMissingConfig  = errors.New("missing required configuration")
	ErrConfigNotFound = errors.New("configuration not found")
)

// sentinelClasses classifies errors that were never wrapped by this package.
var sentinelClasses = []struct {
	err   error
	class ErrorClass
}{
	{ErrConnectionTimeout, ErrorTransient},
	{ErrBackendUnavailable, ErrorTransient},
	{ErrUnexpectedStatus, ErrorTransient},
	{ErrResourceExhausted, ErrorTransient},
	{context.DeadlineExceeded, ErrorTransient},
	{context.Canceled, ErrorTransient},
	{ErrInvalidData, ErrorInvalid},
	{ErrParsingFailed, ErrorInvalid},
	{ErrRequestTooLarge, ErrorInvalid},
	{ErrConfigNotFound, ErrorInvalid},
	{ErrInvalidConfig, ErrorFatal},
	{ErrMissingConfig, ErrorFatal},
}

// messageHints classifies foreign errors, mostly from net and net/http, by text.
var messageHints = []struct {
	words []string
	class ErrorClass
}{
	{[]string{"timeout", "connection", "network", "temporary", "unavailable"}, ErrorTransient},
	{[]string{"fatal", "panic"}, ErrorFatal},
}

// ClassifiedError carries the class of an error and where it happened.
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// classOf returns the class of err and whether it could be determined.
func classOf(err error) (ErrorClass, bool) {
	if err == nil {
		return ErrorTransient, false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class, true
	}
	for _, s := range sentinelClasses {
		if errors.Is(err, s.err) {
			return s.class, true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range messageHints {
		for _, word := range hint.words {
			if strings.Contains(msg, word) {
				return hint.class, true
			}
		}
	}
	return ErrorTransient, false
}

func is(err error, class ErrorClass) bool {
	c, ok := classOf(err)
	return ok && c == class
}

// IsTransient reports whether err may succeed on a later attempt.
func IsTransient(err error) bool { return is(err, ErrorTransient) }

// IsInvalid reports whether err comes from bad input or configuration.
func IsInvalid(err error) bool { return is(err, ErrorInvalid) }

// IsFatal reports whether err should stop the process.
func IsFatal(err error) bool { return is(err, ErrorFatal) }

// Classify returns the class of err. Unknown and nil errors are transient.
func Classify(err error) ErrorClass {
	c, _ := classOf(err)
	return c
}

func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap prefixes err with "component.method: action failed: ".
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

func wrapAs(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return newClassified(class, wrapped, component, method, wrapped.Error())
}

// WrapTransient wraps err as transient.
func WrapTransient(err error, component, method, action string) error {
	return wrapAs(ErrorTransient, err, component, method, action)
}

// WrapInvalid wraps err as invalid.
func WrapInvalid(err error, component, method, action string) error {
	return wrapAs(ErrorInvalid, err, component, method, action)
}

// WrapFatal wraps err as fatal.
func WrapFatal(err error, component, method, action string) error {
	return wrapAs(ErrorFatal, err, component, method, action)
}
