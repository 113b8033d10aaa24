package registry

import (
	"errors"
	"fmt"

	"anagrafe/pkg/sentinel"
)

// Category is the normalized failure taxonomy for registry operations.
type Category string

const (
	// CategoryValidation indicates the input was rejected locally, before
	// any request was issued.
	CategoryValidation Category = "validation"

	// CategoryNotFound indicates the requested record doesn't exist.
	CategoryNotFound Category = "not_found"

	// CategoryConflict indicates a duplicate identity on create.
	CategoryConflict Category = "conflict"

	// CategoryRejected indicates the server refused the payload shape.
	CategoryRejected Category = "rejected"

	// CategoryTransport indicates a network-level or unclassified failure.
	CategoryTransport Category = "transport"
)

// Error wraps registry operation failures with normalized categorization.
type Error struct {
	Category   Category
	Op         string
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("registry %s [%s]: %s: %v", e.Op, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("registry %s [%s]: %s", e.Op, e.Category, e.Message)
}

// Unwrap supports error unwrapping.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches the sentinel corresponding to the error's category, so callers
// can test with errors.Is against pkg/sentinel without knowing this type.
func (e *Error) Is(target error) bool {
	switch target {
	case sentinel.ErrValidation:
		return e.Category == CategoryValidation
	case sentinel.ErrNotFound:
		return e.Category == CategoryNotFound
	case sentinel.ErrConflict:
		return e.Category == CategoryConflict
	case sentinel.ErrRejected:
		return e.Category == CategoryRejected
	case sentinel.ErrUnavailable:
		return e.Category == CategoryTransport
	}
	return false
}

func newError(category Category, op, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Op:         op,
		Message:    message,
		Underlying: underlying,
	}
}

// CategoryOf extracts the category from an error, defaulting to transport
// for anything that did not come out of this package.
func CategoryOf(err error) Category {
	var re *Error
	if errors.As(err, &re) {
		return re.Category
	}
	return CategoryTransport
}
