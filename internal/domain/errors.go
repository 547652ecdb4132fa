package domain

import (
	"errors"
	"fmt"
)

// Error classes shared by every layer. The HTTP layer maps them to status
// codes with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrPermission      = errors.New("permission denied")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrTransient       = errors.New("temporarily unavailable")
)

// Error is a client-facing message tagged with one of the error classes
type Error struct {
	Class   error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Class
}

// NewError tags msg with class
func NewError(class error, msg string) *Error {
	return &Error{Class: class, Message: msg}
}

// Errorf formats a message tagged with class
func Errorf(class error, format string, args ...interface{}) *Error {
	return &Error{Class: class, Message: fmt.Sprintf(format, args...)}
}

// Message returns the client-facing message carried by err, falling back
// to the class text.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	for _, class := range []error{ErrValidation, ErrUnauthenticated, ErrPermission, ErrNotFound, ErrConflict, ErrTransient} {
		if errors.Is(err, class) {
			return class.Error()
		}
	}
	return "internal server error"
}
