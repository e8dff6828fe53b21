package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// CollisionError reports keys required by both sides of a connector.
type CollisionError struct {
	Keys []string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("config keys required by both origin and destination: %s", strings.Join(e.Keys, ", "))
}

// FromMissingError reports origin keys absent from the registry.
type FromMissingError struct {
	Keys []string
}

func (e *FromMissingError) Error() string {
	return fmt.Sprintf("missing origin config keys: %s", strings.Join(e.Keys, ", "))
}

// ToMissingError reports destination keys absent from the registry.
type ToMissingError struct {
	Keys []string
}

func (e *ToMissingError) Error() string {
	return fmt.Sprintf("missing destination config keys: %s", strings.Join(e.Keys, ", "))
}

// CombinedError aggregates every configuration problem found for one
// connector. Errors lists the individual failures in check order.
type CombinedError struct {
	Errors []error
}

func (e *CombinedError) Error() string {
	return (&multierror.Error{Errors: e.Errors}).Error()
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *CombinedError) Unwrap() []error { return e.Errors }

// Validate checks a pair of key sets against reg. All checks run; the
// failures are returned together as a *CombinedError, or nil when there are
// none.
func Validate(from, to KeySet, reg Registry) error {
	var err *multierror.Error
	if keys := from.Intersect(to); len(keys) > 0 {
		err = multierror.Append(err, &CollisionError{Keys: keys})
	}
	if keys := from.Missing(reg); len(keys) > 0 {
		err = multierror.Append(err, &FromMissingError{Keys: keys})
	}
	if keys := to.Missing(reg); len(keys) > 0 {
		err = multierror.Append(err, &ToMissingError{Keys: keys})
	}
	if err == nil {
		return nil
	}
	return &CombinedError{Errors: err.Errors}
}
