// Package datasource defines where source extracts are read from.
package datasource

import (
	"context"
	"io"
)

// Source is an extract opened for one sequential read. Every Open returns
// an independent stream: the row-count pre-pass and the conversion each
// open the source once.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
