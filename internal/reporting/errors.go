package reporting

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter indicates a request that cannot be served, such as an unknown
	// period type or a scope missing identifiers.
	ErrInvalidParameter = errors.New("reporting: invalid parameter")
	// ErrDataUnavailable marks failures reading from the record store.
	ErrDataUnavailable = errors.New("reporting: data unavailable")
	// ErrScopeNotFound reports a property scope outside the owner's portfolio.
	ErrScopeNotFound = errors.New("reporting: scope not found")
)

// DataUnavailableError carries the store failure for one entity read.
type DataUnavailableError struct {
	Entity string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("reporting: fetch %s: %v", e.Entity, e.Err)
}

// Unwrap exposes the underlying store error.
func (e *DataUnavailableError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrDataUnavailable.
func (e *DataUnavailableError) Is(target error) bool {
	return target == ErrDataUnavailable
}

func unavailable(entity string, err error) error {
	return &DataUnavailableError{Entity: entity, Err: err}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}
