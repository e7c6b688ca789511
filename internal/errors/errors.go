// Package errors provides standardized error types for table pipeline
// operations. A single structured Error type carries a Kind discriminator,
// the failing operation and column, and supports wrapping so that pipeline
// stages can propagate failures unmodified to the solve caller.
package errors

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Kind classifies pipeline errors. Every error raised by the engine
// belongs to exactly one kind; all kinds are unrecoverable at the point
// raised.
type Kind int

const (
	// KindSchema indicates malformed or inconsistent input shape, such as
	// columns of unequal length or duplicate column names.
	KindSchema Kind = iota
	// KindColumnNotFound indicates an expression or operator referenced a
	// column that does not exist in the table.
	KindColumnNotFound
	// KindTypeMismatch indicates an operation applied to an incompatible
	// column type without an explicit cast.
	KindTypeMismatch
	// KindPivotCollision indicates multiple rows mapped to the same pivot
	// cell without a resolving aggregation.
	KindPivotCollision
	// KindJoinKey indicates a declared join column is absent from one side.
	KindJoinKey
	// KindNameConflict indicates a rename target collides with an
	// existing untouched column.
	KindNameConflict
	// KindInternal indicates an unexpected internal failure.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindSchema:
		return "schema"
	case KindColumnNotFound:
		return "column not found"
	case KindTypeMismatch:
		return "type mismatch"
	case KindPivotCollision:
		return "pivot collision"
	case KindJoinKey:
		return "join key"
	case KindNameConflict:
		return "name conflict"
	default:
		return "internal"
	}
}

// Error is the structured error type used across all table operations.
type Error struct {
	Kind    Kind   // Error classification
	Op      string // Operation name (e.g. "Filter", "Pivot", "Join")
	Column  string // Column name if applicable
	Message string // Human-readable description
	Cause   error  // Underlying cause
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s: %s error on column %q: %s", e.Op, e.Kind, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Op, e.Kind, e.Message)
}

// Unwrap returns the underlying cause for error wrapping support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by kind so callers can test with errors.Is against
// the sentinel values below without caring about operation context.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinel values for errors.Is matching by kind.
var (
	ErrSchema         = &Error{Kind: KindSchema}
	ErrColumnNotFound = &Error{Kind: KindColumnNotFound}
	ErrTypeMismatch   = &Error{Kind: KindTypeMismatch}
	ErrPivotCollision = &Error{Kind: KindPivotCollision}
	ErrJoinKey        = &Error{Kind: KindJoinKey}
	ErrNameConflict   = &Error{Kind: KindNameConflict}
)

// NewSchemaError creates an error for malformed input shape.
func NewSchemaError(op, column, message string) *Error {
	return &Error{Kind: KindSchema, Op: op, Column: column, Message: message}
}

// NewColumnNotFoundError creates an error for references to missing columns.
func NewColumnNotFoundError(op, column string) *Error {
	return &Error{Kind: KindColumnNotFound, Op: op, Column: column, Message: "column does not exist"}
}

// NewTypeMismatchError creates an error for type-incompatible operations.
func NewTypeMismatchError(op, column, message string) *Error {
	return &Error{Kind: KindTypeMismatch, Op: op, Column: column, Message: message}
}

// NewPivotCollisionError creates an error for ambiguous pivot cells.
func NewPivotCollisionError(op, column, message string) *Error {
	return &Error{Kind: KindPivotCollision, Op: op, Column: column, Message: message}
}

// NewJoinKeyError creates an error for invalid or absent join keys.
func NewJoinKeyError(op, column, message string) *Error {
	return &Error{Kind: KindJoinKey, Op: op, Column: column, Message: message}
}

// NewNameConflictError creates an error for output name collisions.
func NewNameConflictError(op, column, message string) *Error {
	return &Error{Kind: KindNameConflict, Op: op, Column: column, Message: message}
}

// NewInternalError wraps an unexpected failure with operation context.
func NewInternalError(op string, cause error) *Error {
	return &Error{Kind: KindInternal, Op: op, Message: "internal error", Cause: cause}
}

// Collect aggregates multiple validation errors into one. It returns nil
// when errs contains no non-nil errors.
func Collect(op string, errs ...error) error {
	var merr *multierror.Error
	for _, err := range errs {
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if merr == nil {
		return nil
	}
	merr.ErrorFormat = func(es []error) string {
		if len(es) == 1 {
			return fmt.Sprintf("%s: %s", op, es[0])
		}
		s := fmt.Sprintf("%s: %d validation errors:", op, len(es))
		for _, err := range es {
			s += "\n\t" + err.Error()
		}
		return s
	}
	return merr.ErrorOrNil()
}
