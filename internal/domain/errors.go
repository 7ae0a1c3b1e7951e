// internal/domain/errors.go
package domain

import (
	"fmt"
	"strings"
)

// The error taxonomy below is terminal per call: no retries, no partial
// results. Messages propagate verbatim to the caller, so handlers map the
// type to a status code and return Error() as-is.

// SchemaError reports required fields missing from an ingested record set.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// TypeCoercionError reports a value that could not be converted to its
// declared type (an unparsable date or quantity).
type TypeCoercionError struct {
	Field string
	Value string
	Err   error
}

func (e *TypeCoercionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not convert %s value %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("could not convert %s value %q", e.Field, e.Value)
}

func (e *TypeCoercionError) Unwrap() error { return e.Err }

// NotConfiguredError means a query ran before any data was ever set.
type NotConfiguredError struct{}

func (e *NotConfiguredError) Error() string {
	return "no data has been set; call SetData first"
}

// UnknownItemError means a specific item has no usage history.
type UnknownItemError struct {
	ItemID string
}

func (e *UnknownItemError) Error() string {
	return fmt.Sprintf("no usage data for item %q", e.ItemID)
}

// InvalidArgumentError reports a caller-supplied value outside its domain.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string { return e.Reason }
