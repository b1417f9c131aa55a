// Package spool holds the intermediate per-batch files of one job.
//
// A Spool owns a private scratch directory for its lifetime. Close removes
// the directory and everything in it, whatever state the job ended in, so
// callers defer Close right after Open.
package spool

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/cockroachdb/errors"

	"stopprep/internal/storage/parquet"
)

// Handle identifies one spooled batch.
type Handle struct {
	Path string
	Seq  int
	Rows int64
}

// Spool writes batches of a single job into its scratch directory.
// Write and Handles are safe for concurrent use; handles are always
// returned in write order.
type Spool struct {
	dir    string
	schema *arrow.Schema
	opt    parquet.Options

	mu      sync.Mutex
	handles []Handle
	closed  bool
}

// Open creates a fresh scratch directory under root (os.TempDir when root
// is empty) named after jobID.
func Open(root, jobID string, schema *arrow.Schema, opt parquet.Options) (*Spool, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create scratch root %s", root)
		}
	}
	dir, err := os.MkdirTemp(root, "stopprep-"+jobID+"-")
	if err != nil {
		return nil, errors.Wrap(err, "create scratch dir")
	}
	return &Spool{dir: dir, schema: schema, opt: opt}, nil
}

// Dir is the scratch directory.
func (s *Spool) Dir() string { return s.dir }

// Write persists rec as the next batch file.
func (s *Spool) Write(rec arrow.Record) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Handle{}, errors.New("spool is closed")
	}
	h := Handle{
		Seq:  len(s.handles),
		Path: filepath.Join(s.dir, fmt.Sprintf("batch_%06d.parquet", len(s.handles))),
		Rows: rec.NumRows(),
	}
	if err := s.writeFile(h.Path, rec); err != nil {
		_ = os.Remove(h.Path)
		return Handle{}, errors.Wrapf(err, "spool batch %d", h.Seq)
	}
	s.handles = append(s.handles, h)
	return h, nil
}

func (s *Spool) writeFile(path string, rec arrow.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w, err := parquet.NewWriter(f, s.schema, s.opt)
	if err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Write(rec); err != nil {
		_ = w.Close()
		_ = f.Close()
		return err
	}
	return errors.CombineErrors(w.Close(), f.Close())
}

// Handles returns the spooled batches in write order.
func (s *Spool) Handles() []Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Handle(nil), s.handles...)
}

// Rows is the total number of spooled rows.
func (s *Spool) Rows() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, h := range s.handles {
		n += h.Rows
	}
	return n
}

// Close deletes the scratch directory. It is idempotent.
func (s *Spool) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.handles = nil
	if err := os.RemoveAll(s.dir); err != nil {
		return errors.Wrapf(err, "remove scratch dir %s", s.dir)
	}
	return nil
}
