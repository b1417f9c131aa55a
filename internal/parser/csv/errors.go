package csv

import (
	"fmt"

	"stopprep/internal/schema"
)

// ParseError reports source text that could not be read: a malformed CSV
// record, a bad header, or a value that does not parse as its declared
// type. It is fatal for the file; no partial-row recovery is attempted.
type ParseError struct {
	File   string
	Line   int
	Column string // empty for record-level errors
	Type   schema.Type
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("parse %s line %d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s line %d column %q (%s): %v", e.File, e.Line, e.Column, e.Type, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
