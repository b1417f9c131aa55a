package storage

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// Publish creates dst atomically. write receives a temporary file in dst's
// directory; if write and the final sync succeed the file is renamed to dst,
// otherwise it is removed and dst is left untouched.
func Publish(dst string, write func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temp for %s", dst)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrapf(err, "sync %s", tmp.Name())
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmp.Name())
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return errors.Wrapf(err, "publish %s", dst)
	}
	return nil
}
