package parquet

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/cockroachdb/errors"
)

// Info describes a Parquet file without reading its data pages.
type Info struct {
	Rows      int64
	RowGroups int
	Schema    *arrow.Schema
}

// Stat reads the footer of path.
func Stat(path string) (Info, error) {
	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return Info{}, errors.Wrapf(err, "open parquet %s", path)
	}
	defer pf.Close()
	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return Info{}, errors.Wrapf(err, "arrow reader %s", path)
	}
	sc, err := fr.Schema()
	if err != nil {
		return Info{}, errors.Wrapf(err, "schema %s", path)
	}
	return Info{Rows: pf.NumRows(), RowGroups: pf.NumRowGroups(), Schema: sc}, nil
}

// ReadFile streams the records of path to fn in file order. Records are
// only valid for the duration of the call; fn must Retain what it keeps.
func ReadFile(ctx context.Context, path string, mem memory.Allocator, fn func(arrow.Record) error) error {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return errors.Wrapf(err, "open parquet %s", path)
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: 64 * 1024}, mem)
	if err != nil {
		return errors.Wrapf(err, "arrow reader %s", path)
	}
	rr, err := fr.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return errors.Wrapf(err, "record reader %s", path)
	}
	defer rr.Release()

	for rr.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(rr.Record()); err != nil {
			return err
		}
	}
	// The record reader reports io.EOF after the last record.
	if err := rr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrapf(err, "read %s", path)
	}
	return nil
}

// Conform rebinds rec to want when their column names and types agree,
// dropping any field metadata added by the Parquet round trip. The result
// must be released by the caller.
func Conform(rec arrow.Record, want *arrow.Schema) (arrow.Record, error) {
	got := rec.Schema()
	if got.NumFields() != want.NumFields() {
		return nil, errors.Newf("schema has %d columns, want %d", got.NumFields(), want.NumFields())
	}
	for i, f := range want.Fields() {
		g := got.Field(i)
		if g.Name != f.Name || !arrow.TypeEqual(g.Type, f.Type) {
			return nil, errors.Newf("column %d is %s %s, want %s %s", i, g.Name, g.Type, f.Name, f.Type)
		}
	}
	return array.NewRecord(want, rec.Columns(), rec.NumRows()), nil
}

// Fill is the number of non-null values of one column.
type Fill struct {
	Name    string
	NonNull int64
}

// ColumnFill scans path and counts the non-null values of every column,
// in schema order. It also returns the number of rows scanned.
func ColumnFill(ctx context.Context, path string, mem memory.Allocator) ([]Fill, int64, error) {
	info, err := Stat(path)
	if err != nil {
		return nil, 0, err
	}
	fills := make([]Fill, info.Schema.NumFields())
	for i, f := range info.Schema.Fields() {
		fills[i].Name = f.Name
	}
	var rows int64
	err = ReadFile(ctx, path, mem, func(rec arrow.Record) error {
		if int(rec.NumCols()) != len(fills) {
			return errors.Newf("record has %d columns, file schema %d", rec.NumCols(), len(fills))
		}
		for i, col := range rec.Columns() {
			fills[i].NonNull += int64(col.Len() - col.NullN())
		}
		rows += rec.NumRows()
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return fills, rows, nil
}
