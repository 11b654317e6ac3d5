package components

import (
	"errors"
	"fmt"
)

// NotFoundError reports that no component of the given kind answers to the
// identifier. Providers treat it as benign during aggregation; only the
// composition boundary surfaces it to callers.
type NotFoundError struct {
	Kind       Kind
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown %s: %q", e.Kind.label(), e.Identifier)
}

// NewNotFound builds a NotFoundError for the given kind and identifier.
func NewNotFound(kind Kind, identifier string) *NotFoundError {
	return &NotFoundError{Kind: kind, Identifier: identifier}
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
