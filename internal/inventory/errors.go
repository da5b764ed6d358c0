package inventory

import (
	"errors"
	"fmt"

	"github.com/lehigh-university-libraries/shelver/internal/models"
)

// ErrNotFound is matched by every *NotFoundError
var ErrNotFound = errors.New("not found")

// ValidationError reports a malformed input. Index is the position of the
// offending record in a batch, or -1 for single requests.
type ValidationError struct {
	Field  string
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("record %d: %s %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// NotFoundError reports a missing collection or item
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AlreadyPlacedError is returned when scanning an item that already has a placement
type AlreadyPlacedError struct {
	Serial    string
	Placement models.Placement
}

func (e *AlreadyPlacedError) Error() string {
	return fmt.Sprintf("item %s is already placed at %s", e.Serial, e.Placement)
}

// LocationConflictError is returned when the requested location holds another item
type LocationConflictError struct {
	Location models.Placement
	Serial   string
}

func (e *LocationConflictError) Error() string {
	if e.Serial == "" {
		return fmt.Sprintf("location %s is already occupied", e.Location)
	}
	return fmt.Sprintf("location %s is already occupied by %s", e.Location, e.Serial)
}

// StoreError wraps an unexpected failure of the underlying store
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func invalid(field string, index int, reason string) error {
	return &ValidationError{Field: field, Index: index, Reason: reason}
}

func storeErr(op string, err error) error {
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
