package gatt

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a builder or registry failure.
type ErrorKind string

const (
	InvalidUUID          ErrorKind = "invalid_uuid"
	InvalidValueKind     ErrorKind = "invalid_value_kind"
	MissingRequiredField ErrorKind = "missing_required_field"
	UnknownField         ErrorKind = "unknown_field"
	AlreadyAttached      ErrorKind = "already_attached"
	ServiceNotFound      ErrorKind = "service_not_found"
	RegistrationFailed   ErrorKind = "registration_failed"
)

// Error is the typed failure returned by builders and the Registry.
// None of the kinds is fatal; callers may correct the input and retry.
type Error struct {
	Kind  ErrorKind
	Field string // option field the failure refers to, if any
	Msg   string
	Err   error // underlying cause, e.g. the platform's rejection
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := string(e.Kind)
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Field)
	}
	if e.Msg != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is allows errors.Is to compare Error values by Kind
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Predefined sentinel errors, one per kind
var (
	ErrInvalidUUID          = &Error{Kind: InvalidUUID}
	ErrInvalidValueKind     = &Error{Kind: InvalidValueKind}
	ErrMissingRequiredField = &Error{Kind: MissingRequiredField}
	ErrUnknownField         = &Error{Kind: UnknownField}
	ErrAlreadyAttached      = &Error{Kind: AlreadyAttached}
	ErrServiceNotFound      = &Error{Kind: ServiceNotFound}
	ErrRegistrationFailed   = &Error{Kind: RegistrationFailed}
)

// IsKind reports whether err is an *Error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind == kind
	}
	return false
}

func missingField(field string) error {
	return &Error{Kind: MissingRequiredField, Field: field}
}

// NewUnknownFieldError reports an option key no option struct declares.
// Decoders of loosely typed option records (Lua tables, YAML) use it to reject
// keys instead of ignoring them.
func NewUnknownFieldError(field string) error {
	return &Error{Kind: UnknownField, Field: field}
}

// NewFieldTypeError reports an option value of the wrong shape.
func NewFieldTypeError(field, want string) error {
	return &Error{Kind: InvalidValueKind, Field: field, Msg: "expected " + want}
}

// NewMissingFieldError reports a required option key that is absent.
func NewMissingFieldError(field string) error {
	return missingField(field)
}
