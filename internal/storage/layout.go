// Package storage names and publishes the final per-file artifacts.
//
// An artifact exists at its final path only when it is complete: Publish
// writes to a temporary sibling and renames it into place, so a reader (or a
// later run's skip check) never observes a partial file.
package storage

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// DefaultSuffix is appended to the file id to form the artifact name.
const DefaultSuffix = "_preprocessed.parquet"

// Layout maps file ids to artifact paths under Dir.
type Layout struct {
	Dir    string
	Suffix string
}

// Path returns the artifact path for fileID.
func (l Layout) Path(fileID string) string {
	suffix := l.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return filepath.Join(l.Dir, fileID+suffix)
}

// Exists reports whether the artifact for fileID is already published. Any
// stat error other than not-exist is returned.
func (l Layout) Exists(fileID string) (bool, error) {
	fi, err := os.Stat(l.Path(fileID))
	switch {
	case err == nil:
		if fi.IsDir() {
			return false, errors.Newf("%s is a directory", l.Path(fileID))
		}
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, errors.Wrapf(err, "stat %s", l.Path(fileID))
	}
}

// Ensure creates Dir if needed.
func (l Layout) Ensure() error {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return errors.Wrapf(err, "create output dir %s", l.Dir)
	}
	return nil
}
