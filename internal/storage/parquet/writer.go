// Package parquet writes and reads canonical Arrow records as Parquet files.
package parquet

import (
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/cockroachdb/errors"
)

// DefaultCompression is used when Options.Compression is empty.
const DefaultCompression = "snappy"

// Options configures a Writer.
type Options struct {
	Compression  string // snappy, zstd, gzip or none
	RowGroupRows int64  // 0 keeps the library default
	Mem          memory.Allocator
}

// Codec resolves a compression name.
func Codec(name string) (compress.Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DefaultCompression:
		return compress.Codecs.Snappy, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	}
	return compress.Codecs.Uncompressed, errors.Newf("unsupported compression %q", name)
}

// Writer appends records with a fixed schema to one Parquet stream.
type Writer struct {
	fw     *pqarrow.FileWriter
	schema *arrow.Schema
	rows   int64
	closed bool
}

// NewWriter starts a Parquet stream on w. The Arrow schema is stored in the
// file metadata so readers recover the exact logical types.
func NewWriter(w io.Writer, schema *arrow.Schema, opt Options) (*Writer, error) {
	codec, err := Codec(opt.Compression)
	if err != nil {
		return nil, err
	}
	mem := opt.Mem
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	popts := []parquet.WriterProperty{
		parquet.WithCompression(codec),
		parquet.WithAllocator(mem),
	}
	if opt.RowGroupRows > 0 {
		popts = append(popts, parquet.WithMaxRowGroupLength(opt.RowGroupRows))
	}
	fw, err := pqarrow.NewFileWriter(schema, writeOnly{w},
		parquet.NewWriterProperties(popts...),
		pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema(), pqarrow.WithAllocator(mem)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "parquet writer")
	}
	return &Writer{fw: fw, schema: schema}, nil
}

// Write appends rec. Records must match the writer schema; empty records
// are ignored.
func (w *Writer) Write(rec arrow.Record) error {
	if w.closed {
		return errors.New("parquet writer is closed")
	}
	if !rec.Schema().Equal(w.schema) {
		return errors.Newf("record schema %s does not match writer schema", rec.Schema())
	}
	if rec.NumRows() == 0 {
		return nil
	}
	if err := w.fw.Write(rec); err != nil {
		return errors.Wrap(err, "parquet write")
	}
	w.rows += rec.NumRows()
	return nil
}

// Rows is the number of rows written so far.
func (w *Writer) Rows() int64 { return w.rows }

// Close flushes the footer. The underlying io.Writer stays open. Close is
// idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return errors.Wrap(w.fw.Close(), "parquet close")
}

// writeOnly hides any Close method of the sink so that the caller keeps
// ownership of it.
type writeOnly struct{ w io.Writer }

func (o writeOnly) Write(p []byte) (int, error) { return o.w.Write(p) }
