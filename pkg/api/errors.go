package api

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyInput is returned when an uploaded table has no header or no data rows.
var ErrEmptyInput = errors.New("table contains no data rows")

// SchemaError reports a header set that cannot be reconciled to the canonical fields.
// Nothing from the batch is processed or persisted.
type SchemaError struct {
	// Missing lists the canonical fields no input column resolved to.
	Missing []Field
	// Found echoes the header names as they appeared in the input.
	Found []string
}

func (e *SchemaError) Error() string {
	missing := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		missing[i] = string(f)
	}
	return fmt.Sprintf("missing required columns %s (found: %s)",
		strings.Join(missing, ", "), strings.Join(e.Found, ", "))
}

// UnparseableError is returned when the input cannot be read as a table at all.
type UnparseableError struct {
	// Detail describes what broke, for the uploader.
	Detail string
	Err    error
}

func (e *UnparseableError) Error() string {
	return "unparseable table: " + e.Detail
}

func (e *UnparseableError) Unwrap() error {
	return e.Err
}

// StoreError reports a failed commit or read at the persistence gateway.
// A failed commit leaves no row of the batch behind.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err means the uploaded data was unusable,
// as opposed to a failure to save valid data.
func IsInputError(err error) bool {
	var schemaErr *SchemaError
	var parseErr *UnparseableError
	return errors.Is(err, ErrEmptyInput) || errors.As(err, &schemaErr) || errors.As(err, &parseErr)
}
