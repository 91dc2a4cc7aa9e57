package apperr

import (
	"errors"
	"fmt"
)

// Kind groups errors by how callers are expected to react to them.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindResourceBusy Kind = "resource_busy"
	KindNotFound     Kind = "not_found"
	KindInternal     Kind = "internal"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrInvalidPosition = errors.New("position out of range")
	ErrUnknownProvider = errors.New("unknown provider")

	ErrResourceBusy  = errors.New("resource busy")
	ErrJobProcessing = errors.New("job is processing")

	ErrNotFound = errors.New("not found")

	ErrDuplicateJob      = errors.New("duplicate job id")
	ErrInvalidTransition = errors.New("invalid job state transition")
)

// Error carries a kind, a user-facing message and optional details for the
// response envelope. Cause is matched by errors.Is through Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Details interface{}
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// Validation wraps ErrValidation with field details.
func Validation(message string, details interface{}) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details, Cause: ErrValidation}
}

// NotFound wraps ErrNotFound for the named resource.
func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", resource, id), Cause: ErrNotFound}
}

// Busy wraps cause (ErrResourceBusy or ErrJobProcessing) with a message.
func Busy(message string, cause error) *Error {
	if cause == nil {
		cause = ErrResourceBusy
	}
	return &Error{Kind: KindResourceBusy, Message: message, Cause: cause}
}

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e.Kind != "" {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidPosition), errors.Is(err, ErrUnknownProvider):
		return KindValidation
	case errors.Is(err, ErrResourceBusy), errors.Is(err, ErrJobProcessing):
		return KindResourceBusy
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	}
	return KindInternal
}

// DetailsOf returns the details attached to err, if any.
func DetailsOf(err error) interface{} {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}
