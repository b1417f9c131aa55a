// Package file locates and opens police-stop sources on the local disk.
package file

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"stopprep/internal/datasource"
)

var _ datasource.Source = Source{}

// Source is one input file. ID is the file identifier used for unique ids
// and the artifact name: the base name without its extension.
type Source struct {
	Path string
	ID   string
}

// NewSource derives the identifier of path.
func NewSource(path string) Source { return Source{Path: path, ID: FileID(path)} }

// FileID returns the base name of path without its final extension.
//
//	raw-data/dept01.csv    -> dept01
//	raw-data/tx.austin.csv -> tx.austin
func FileID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Open opens the source for one sequential pass. A canceled context
// short-circuits before the filesystem is touched.
func (s Source) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", s.Path)
	}
	adviseSequential(f)
	return f, nil
}
