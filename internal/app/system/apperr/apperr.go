// Package apperr defines the error codes returned to API clients and the
// HTTP status each one maps to.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
)

// Code identifies a class of failure. Codes are stable and appear verbatim
// in API responses.
type Code string

const (
	CodeUnauthenticated     Code = "UNAUTHENTICATED"
	CodeCrossTenantDenied   Code = "CROSS_TENANT_DENIED"
	CodeRoleDenied          Code = "ROLE_DENIED"
	CodeSelfRemovalDenied   Code = "SELF_REMOVAL_DENIED"
	CodeLastAdminRequired   Code = "LAST_ADMIN_REQUIRED"
	CodeNotFound            Code = "NOT_FOUND"
	CodeDuplicateInvitation Code = "DUPLICATE_INVITATION"
	CodeInvalidInvitation   Code = "INVALID_OR_EXPIRED_INVITATION"
	CodeEmailMismatch       Code = "EMAIL_MISMATCH"
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeDuplicateCredential Code = "DUPLICATE_CREDENTIAL"
	CodeRateLimited         Code = "RATE_LIMITED"
	CodeStore               Code = "STORE_ERROR"
)

// Error is an application error carrying a Code and a client-safe message.
// Cause, when set, is for logs only.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error with the same code, so errors.Is(err, apperr.New(code, ""))
// and the package sentinels below work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// New returns an *Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf formats the message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Store wraps an unexpected persistence failure.
func Store(cause error) *Error {
	return &Error{Code: CodeStore, Message: "an internal error occurred", Cause: cause}
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnauthenticated     = New(CodeUnauthenticated, "authentication required")
	ErrCrossTenant         = New(CodeCrossTenantDenied, "not found")
	ErrRoleDenied          = New(CodeRoleDenied, "your role does not permit this action")
	ErrSelfRemoval         = New(CodeSelfRemovalDenied, "you cannot remove yourself")
	ErrLastAdmin           = New(CodeLastAdminRequired, "an organization must keep at least one admin")
	ErrNotFound            = New(CodeNotFound, "not found")
	ErrDuplicateInvitation = New(CodeDuplicateInvitation, "a pending invitation already exists for this email")
	ErrInvalidInvitation   = New(CodeInvalidInvitation, "invitation is invalid or has expired")
	ErrEmailMismatch       = New(CodeEmailMismatch, "email does not match the invitation")
	ErrDuplicateCredential = New(CodeDuplicateCredential, "an account with this email already exists")
	ErrRateLimited         = New(CodeRateLimited, "too many requests, please try again later")
)

// Validation returns a VALIDATION_ERROR with message.
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// Wrap translates a store error for callers: *Error values pass through,
// a missing document becomes NOT_FOUND, anything else STORE_ERROR.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return Store(err)
}

// CodeOf extracts the Code from err, or CodeStore for anything unrecognized.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeStore
}

// From converts any error into an *Error. Unknown errors become STORE_ERROR.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Store(err)
}

// HTTPStatus maps a Code to its response status. Cross-tenant denials are
// reported as 404 so callers cannot probe for foreign ids.
func HTTPStatus(code Code) int {
	switch code {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeRoleDenied, CodeSelfRemovalDenied, CodeLastAdminRequired:
		return http.StatusForbidden
	case CodeNotFound, CodeCrossTenantDenied:
		return http.StatusNotFound
	case CodeDuplicateInvitation, CodeDuplicateCredential:
		return http.StatusConflict
	case CodeInvalidInvitation:
		return http.StatusGone
	case CodeEmailMismatch:
		return http.StatusBadRequest
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
