// Package csv reads police-stop CSV sources in bounded, typed batches.
//
// Header cells are normalized (see NormalizeHeader) and every cell is parsed
// according to the registry type of its column; columns the registry does not
// know are read as text and left for the transformer to drop.
package csv

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"stopprep/internal/schema"
	"stopprep/internal/transformer"
)

// DefaultBatchSize is the number of rows per batch when Options leaves it 0.
const DefaultBatchSize = 10000

// Options controls how a source is tokenized.
type Options struct {
	Comma      rune
	NullValues []string // "" and "NA" when nil
	TrimSpace  bool
	LazyQuotes bool
	Encoding   string // utf-8 (default), latin1, windows-1252
	BatchSize  int
}

func (o Options) withDefaults() Options {
	if o.Comma == 0 {
		o.Comma = ','
	}
	if o.NullValues == nil {
		o.NullValues = []string{"", "NA"}
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	return o
}

func newCSV(r io.Reader, opt Options) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = opt.Comma
	cr.LazyQuotes = opt.LazyQuotes
	cr.TrimLeadingSpace = opt.TrimSpace
	cr.ReuseRecord = true
	return cr
}

// Reader produces SourceBatches from one source. It is not safe for
// concurrent use; see Prefetch for overlapping reads with downstream work.
type Reader struct {
	name  string
	src   io.Closer
	cr    *csv.Reader
	opt   Options
	cols  []string
	types []schema.Type
	nulls map[string]struct{}
	seq   int
	done  bool
}

// NewReader reads and validates the header of src. name identifies the
// source in errors. The returned Reader owns src.
func NewReader(src io.ReadCloser, name string, reg *schema.Registry, opt Options) (*Reader, error) {
	opt = opt.withDefaults()
	in, err := decodeInput(src, opt.Encoding)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	r := &Reader{name: name, src: src, opt: opt, cr: newCSV(in, opt)}
	r.nulls = make(map[string]struct{}, len(opt.NullValues))
	for _, v := range opt.NullValues {
		r.nulls[v] = struct{}{}
	}

	header, err := r.cr.Read()
	if err != nil {
		_ = src.Close()
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{File: name, Line: 1, Err: errors.New("missing header")}
		}
		return nil, r.wrapRecordErr(err)
	}
	seen := make(map[string]struct{}, len(header))
	r.cols = make([]string, len(header))
	r.types = make([]schema.Type, len(header))
	for i, h := range header {
		n := NormalizeHeader(h)
		if n == "" {
			_ = src.Close()
			return nil, &ParseError{File: name, Line: 1, Err: errors.Newf("header cell %d is empty", i+1)}
		}
		if _, dup := seen[n]; dup {
			_ = src.Close()
			return nil, &ParseError{File: name, Line: 1, Column: n, Err: errors.New("duplicate header")}
		}
		seen[n] = struct{}{}
		r.cols[i] = n
		r.types[i] = reg.TypeOf(n)
	}
	if _, ok := seen[schema.RowNumberColumn]; !ok {
		_ = src.Close()
		return nil, &ParseError{File: name, Line: 1, Err: errors.Newf("required column %q missing", schema.RowNumberColumn)}
	}
	// Every record must match the header width.
	r.cr.FieldsPerRecord = len(header)
	return r, nil
}

// Columns returns the normalized header. The slice must not be modified.
func (r *Reader) Columns() []string { return r.cols }

// Next returns the next batch of up to BatchSize rows, or io.EOF once the
// source is exhausted. A short final batch is returned before io.EOF.
func (r *Reader) Next(ctx context.Context) (*transformer.SourceBatch, error) {
	if r.done {
		return nil, io.EOF
	}
	b := &transformer.SourceBatch{
		Seq:     r.seq,
		Columns: r.cols,
		Rows:    make([]transformer.Row, 0, r.opt.BatchSize),
	}
	for len(b.Rows) < r.opt.BatchSize {
		if len(b.Rows)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := r.cr.Read()
		if errors.Is(err, io.EOF) {
			r.done = true
			break
		}
		if err != nil {
			return nil, r.wrapRecordErr(err)
		}
		line, _ := r.cr.FieldPos(0)
		row := transformer.Row{Line: line, V: make([]any, len(rec))}
		for i, cell := range rec {
			if r.opt.TrimSpace {
				cell = strings.TrimSpace(cell)
			}
			if _, null := r.nulls[cell]; null {
				continue
			}
			v, err := transformer.ParseValue(r.types[i], cell)
			if err != nil {
				l, _ := r.cr.FieldPos(i)
				return nil, &ParseError{File: r.name, Line: l, Column: r.cols[i], Type: r.types[i], Value: cell, Err: err}
			}
			row.V[i] = v
		}
		b.Rows = append(b.Rows, row)
	}
	if len(b.Rows) == 0 {
		return nil, io.EOF
	}
	r.seq++
	return b, nil
}

// Close releases the underlying source.
func (r *Reader) Close() error { return r.src.Close() }

func (r *Reader) wrapRecordErr(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{File: r.name, Line: pe.Line, Err: pe.Err}
	}
	return errors.Wrapf(err, "read %s", r.name)
}

// CountRecords returns the number of data records in r, excluding the
// header. It tokenizes with the same rules as Reader so that quoted
// newlines are not miscounted. name identifies the source in errors.
func CountRecords(ctx context.Context, r io.Reader, name string, opt Options) (int64, error) {
	opt = opt.withDefaults()
	in, err := decodeInput(r, opt.Encoding)
	if err != nil {
		return 0, err
	}
	cr := newCSV(in, opt)
	cr.FieldsPerRecord = -1
	var n int64
	for {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		_, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return 0, &ParseError{File: name, Line: pe.Line, Err: pe.Err}
			}
			return 0, errors.Wrapf(err, "count %s", name)
		}
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return n - 1, nil
}
