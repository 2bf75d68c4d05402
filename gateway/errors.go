package gateway

import (
	"errors"
	"fmt"
)

// Code classifies gateway failures. Clients receive it in acknowledgments.
type Code string

const (
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeNotFound        Code = "NOT_FOUND"
	CodeNotAMember      Code = "NOT_A_MEMBER"
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeStoreFailure    Code = "STORE_FAILURE"
	CodeDispatchFailure Code = "DISPATCH_FAILURE"
)

var (
	ErrUnauthenticated = &Error{Code: CodeUnauthenticated, Message: "authentication required"}
	ErrNotFound        = &Error{Code: CodeNotFound, Message: "not found"}
	ErrNotAMember      = &Error{Code: CodeNotAMember, Message: "not a member of this chat"}
	ErrValidation      = &Error{Code: CodeValidation, Message: "invalid input"}
	ErrStoreFailure    = &Error{Code: CodeStoreFailure, Message: "store unavailable"}
	ErrDispatchFailure = &Error{Code: CodeDispatchFailure, Message: "push dispatch failed"}
)

// Error is a classified gateway failure. errors.Is matches on Code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of a gateway error, or STORE_FAILURE for anything unclassified.
func CodeOf(err error) Code {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Code
	}
	return CodeStoreFailure
}

// MessageOf returns the client facing message for err. Causes are not exposed.
func MessageOf(err error) string {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Message
	}
	return ErrStoreFailure.Message
}
