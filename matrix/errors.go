/*
errors.go - Error types for the matrix engine

ERROR CATEGORIES:
  1. Validation errors - malformed input that the caller should re-prompt for
     (negative salary, non-numeric rate, unknown field or unit)
  2. Lookup errors - a band/level/grade that is not on the matrix axes

NOT ERRORS:
  Missing grouping keys and empty cells are expected sparsity. They are
  excluded or yield zero averages and never surface as an error.
*/
package matrix

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned for values that can never be valid
	// (negative salary, non-numeric rate).
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownField is returned for a rate field name that is not
	// baseUp, merit or additional.
	ErrUnknownField = errors.New("unknown rate field")

	// ErrUnitMismatch is returned when an additional amount is written with
	// a unit different from the matrix's additional unit.
	ErrUnitMismatch = errors.New("additional unit mismatch")

	// ErrCellNotFound is returned when a band/level/grade is not on the axes.
	ErrCellNotFound = errors.New("cell not found")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError describes one rejected input value.
type ValidationError struct {
	EmployeeID string
	Field      string
	Value      string
	Reason     string
	cause      error
}

func (e *ValidationError) Error() string {
	if e.EmployeeID != "" {
		return fmt.Sprintf("invalid %s for employee %s: %s", e.Field, e.EmployeeID, e.Reason)
	}
	if e.Value != "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	return ErrInvalidInput
}

// CellNotFoundError names the coordinates that missed the axes.
type CellNotFoundError struct {
	Band  string
	Level string
	Grade string
}

func (e *CellNotFoundError) Error() string {
	if e.Grade != "" {
		return fmt.Sprintf("cell not found: band=%q level=%q grade=%q", e.Band, e.Level, e.Grade)
	}
	return fmt.Sprintf("cell not found: band=%q level=%q", e.Band, e.Level)
}

func (e *CellNotFoundError) Unwrap() error {
	return ErrCellNotFound
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnknownField) ||
		errors.Is(err, ErrUnitMismatch)
}

// IsNotFound returns true if the error indicates coordinates off the axes.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCellNotFound)
}
