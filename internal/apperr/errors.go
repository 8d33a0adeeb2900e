package apperr

// Package apperr defines the error taxonomy shared by the query engine and
// the HTTP layer. Handlers map these to status codes at the boundary;
// everything else just wraps and returns.

import (
	"fmt"
)

// InvalidDirective reports a malformed reserved parameter (order, limit,
// offset, page, per_page) naming the offending key.
type InvalidDirective struct {
	Key   string
	Value string
}

func (e *InvalidDirective) Error() string {
	return fmt.Sprintf("invalid directive %q: %q", e.Key, e.Value)
}

// SchemaMismatch reports a whitelisted filter field that does not exist in
// the underlying table schema. Client error, not a server fault.
type SchemaMismatch struct {
	Resource string
	Field    string
}

func (e *SchemaMismatch) Error() string {
	return fmt.Sprintf("resource %q has no column for field %q", e.Resource, e.Field)
}

// NotFound reports a missing record (or an unknown resource type).
type NotFound struct {
	Resource string
	Key      any
}

func (e *NotFound) Error() string {
	if e.Key == nil {
		return fmt.Sprintf("%s: not found", e.Resource)
	}
	return fmt.Sprintf("%s %v: not found", e.Resource, e.Key)
}

// Validation carries field-level messages for a rejected write.
type Validation struct {
	Fields map[string]string
}

func (e *Validation) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}
