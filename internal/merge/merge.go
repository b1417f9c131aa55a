// Package merge concatenates spooled batches into the final artifact.
package merge

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"stopprep/internal/spool"
	"stopprep/internal/storage"
	"stopprep/internal/storage/parquet"
)

// Source is the spool a Merger drains.
type Source interface {
	Handles() []spool.Handle
	Close() error
}

// Merger writes the batches of one job, in order, into a single file.
type Merger struct {
	Schema  *arrow.Schema
	Options parquet.Options
	Mem     memory.Allocator
	Log     *zap.Logger

	// publish is storage.Publish; tests replace it.
	publish func(dst string, write func(io.Writer) error) error
}

func (m *Merger) logger() *zap.Logger {
	if m.Log == nil {
		return zap.NewNop()
	}
	return m.Log
}

// Merge publishes dst atomically from the handles of src and returns the
// row count written. On success the spool is closed, deleting the
// intermediates; on failure nothing exists at dst and the spool is left to
// its owner.
func (m *Merger) Merge(ctx context.Context, src Source, dst string) (int64, error) {
	handles := src.Handles()
	publish := m.publish
	if publish == nil {
		publish = storage.Publish
	}

	var rows int64
	err := publish(dst, func(w io.Writer) error {
		pw, err := parquet.NewWriter(w, m.Schema, m.Options)
		if err != nil {
			return err
		}
		for _, h := range handles {
			if err := ctx.Err(); err != nil {
				_ = pw.Close()
				return err
			}
			var got int64
			err := parquet.ReadFile(ctx, h.Path, m.Mem, func(rec arrow.Record) error {
				c, err := parquet.Conform(rec, m.Schema)
				if err != nil {
					return err
				}
				defer c.Release()
				got += c.NumRows()
				return pw.Write(c)
			})
			if err == nil && got != h.Rows {
				err = errors.Newf("has %d rows, spooled %d", got, h.Rows)
			}
			if err != nil {
				_ = pw.Close()
				return errors.Wrapf(err, "batch %d", h.Seq)
			}
			m.logger().Debug("merge: batch appended", zap.Int("seq", h.Seq), zap.Int64("rows", got))
		}
		rows = pw.Rows()
		return pw.Close()
	})
	if err != nil {
		return 0, errors.Wrapf(err, "merge %s", dst)
	}
	if err := src.Close(); err != nil {
		m.logger().Warn("merge: scratch cleanup failed", zap.Error(err))
	}
	return rows, nil
}
