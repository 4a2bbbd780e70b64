package services

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds, stable for errors.Is and for mapping to HTTP status codes.
var (
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not_found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation")
	ErrUpstream     = errors.New("upstream")
	ErrInternal     = errors.New("internal")
)

// Error codes returned to callers.
const (
	CodeEmailAlreadyRegistered = "EMAIL_ALREADY_REGISTERED"
	CodeDuplicateEmail         = "DUPLICATE_EMAIL"
	CodeDuplicateNIF           = "DUPLICATE_NIF"
	CodeDuplicateCIF           = "DUPLICATE_CIF"
	CodeDuplicateCode          = "DUPLICATE_CODE"
	CodeAllocationFailed       = "CODE_ALLOCATION_FAILED"
	CodeUserNotExists          = "USER_NOT_EXISTS"
	CodeUserNotFound           = "USER_NOT_FOUND"
	CodeInvalidPassword        = "INVALID_PASSWORD"
	CodeTokenInvalid           = "TOKEN_INVALID"
	CodeTokenExpired           = "TOKEN_EXPIRED"
	CodeInvalidCode            = "INVALID_CODE"
	CodeMaxAttemptsReached     = "MAX_ATTEMPTS_REACHED"
	CodeAlreadyVerified        = "ALREADY_VERIFIED"
	CodeNotAnAdmin             = "NOT_AN_ADMIN"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeUploadFailed           = "UPLOAD_FAILED"
	CodeNoFileUploaded         = "NO_FILE_UPLOADED"
	CodeInvalidImage           = "INVALID_IMAGE"
	CodeRateLimited            = "RATE_LIMITED"
	CodeInternal               = "INTERNAL_ERROR"
)

// Error is the tagged result every service operation fails with.
// Code is safe to show to clients; it never carries secrets.
type Error struct {
	Op     string
	Kind   error
	Code   string
	Status int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Code)
}

func (e *Error) Unwrap() error { return e.Kind }

var kindStatus = map[error]int{
	ErrConflict:     http.StatusConflict,
	ErrNotFound:     http.StatusNotFound,
	ErrUnauthorized: http.StatusUnauthorized,
	ErrForbidden:    http.StatusForbidden,
	ErrValidation:   http.StatusBadRequest,
	ErrUpstream:     http.StatusBadGateway,
	ErrInternal:     http.StatusInternalServerError,
}

func newError(op string, kind error, code string) *Error {
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &Error{Op: op, Kind: kind, Code: code, Status: status}
}

func internalError(op string) *Error {
	return newError(op, ErrInternal, CodeInternal)
}

// AsError extracts the service error from err's chain.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// CodeOf returns the client-facing code of err, or CodeInternal.
func CodeOf(err error) string {
	if se, ok := AsError(err); ok {
		return se.Code
	}
	return CodeInternal
}
