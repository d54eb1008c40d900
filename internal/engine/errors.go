package engine

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrReferential = errors.New("referential integrity violation")
	ErrValidation  = errors.New("validation failed")
)

// NotFoundError reports an operation addressed to an unknown record.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Entity, e.ID) }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ReferentialError reports a field that references a record that does not exist.
type ReferentialError struct {
	Entity string
	Field  string
	ID     string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("%s.%s references unknown user %q", e.Entity, e.Field, e.ID)
}
func (e *ReferentialError) Unwrap() error { return ErrReferential }

// ValidationError reports an input value outside its allowed range.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason) }
func (e *ValidationError) Unwrap() error { return ErrValidation }

// PersistenceWarning reports a durable write that failed. In-memory state
// stays authoritative; the warning never fails the operation.
type PersistenceWarning struct {
	Op  string
	Err error
}

func (w PersistenceWarning) Error() string { return fmt.Sprintf("persist %s: %v", w.Op, w.Err) }
func (w PersistenceWarning) Unwrap() error { return w.Err }
