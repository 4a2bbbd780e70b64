package repository

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")

	// ErrPreconditionFailed means a conditional update matched no row: the
	// account exists but is not in the state the caller required.
	ErrPreconditionFailed = errors.New("precondition_failed")
)

// Unique fields reported by ConflictError.
const (
	FieldEmail = "email"
	FieldNIF   = "nif"
	FieldCIF   = "company_cif"
	FieldCode  = "code"
)

// ConflictError reports a unique-index violation on a logical field.
type ConflictError struct {
	Op    string
	Field string
}

func (e ConflictError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Op, ErrConflict)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, ErrConflict, e.Field)
}

func (e ConflictError) Unwrap() error { return ErrConflict }

// ConflictField returns the field of a ConflictError in err's chain, or "".
func ConflictField(err error) string {
	var ce ConflictError
	if errors.As(err, &ce) {
		return ce.Field
	}
	return ""
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// OpError wraps an unexpected store failure with the operation name.
func OpError(op, msg string) error {
	return fmt.Errorf("%s: %s", op, msg)
}
