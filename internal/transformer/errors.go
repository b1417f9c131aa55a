package transformer

import (
	"fmt"

	"stopprep/internal/schema"
)

// CastError reports a present value that could not be coerced into its
// canonical type. It is fatal for the whole source file.
type CastError struct {
	Line   int
	Column string
	Type   schema.Type
	Value  any
	Err    error
}

func (e *CastError) Error() string {
	return fmt.Sprintf("cast line %d column %q to %s: %v", e.Line, e.Column, e.Type, e.Err)
}

func (e *CastError) Unwrap() error { return e.Err }

// DuplicateIDError reports a unique_id that was already produced in this run.
type DuplicateIDError struct {
	ID   string
	Line int
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate unique_id %q at line %d", e.ID, e.Line)
}
