package etl

import (
	"context"

	"github.com/cockroachdb/errors"

	"stopprep/internal/parser/csv"
	"stopprep/internal/transformer"
)

// Error classes reported per failed file.
const (
	ClassParse     = "parse"
	ClassCast      = "cast"
	ClassDuplicate = "duplicate"
	ClassIO        = "io"
	ClassCanceled  = "canceled"
)

// Classify maps a per-file error onto its class. Errors that are not parse,
// cast, duplicate or cancellation errors are I/O errors.
func Classify(err error) string {
	var (
		pe *csv.ParseError
		ce *transformer.CastError
		de *transformer.DuplicateIDError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ClassCanceled
	case errors.As(err, &pe):
		return ClassParse
	case errors.As(err, &ce):
		return ClassCast
	case errors.As(err, &de):
		return ClassDuplicate
	}
	return ClassIO
}
