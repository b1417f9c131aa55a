package transformer

import (
	"slices"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"stopprep/internal/schema"
)

// ErrNullRowNumber is the cause when a row has no raw_row_number.
var ErrNullRowNumber = errors.New("raw_row_number is null")

// Projection maps a source header onto the canonical registry.
type Projection struct {
	// Src[j] is the source index feeding canonical column j, or -1 when the
	// source does not carry it (the column is emitted as typed nulls).
	Src []int
	// RowNumber is the source index of raw_row_number.
	RowNumber int
	// Dropped lists source columns that are not in the registry. Their data
	// does not reach the artifact.
	Dropped []string
	// Missing lists canonical columns the source does not carry.
	Missing []string
}

// Project builds the projection of columns onto reg. A source without
// raw_row_number cannot be projected.
func Project(reg *schema.Registry, columns []string) (Projection, error) {
	p := Projection{Src: make([]int, reg.Len()), RowNumber: -1}
	for j := range p.Src {
		p.Src[j] = -1
	}
	for i, name := range columns {
		_, j, ok := reg.Lookup(name)
		if !ok {
			p.Dropped = append(p.Dropped, name)
			continue
		}
		if p.Src[j] >= 0 {
			return Projection{}, errors.Newf("column %q appears more than once", name)
		}
		p.Src[j] = i
		if name == schema.RowNumberColumn {
			p.RowNumber = i
		}
	}
	if p.RowNumber < 0 {
		return Projection{}, errors.Newf("required column %q missing", schema.RowNumberColumn)
	}
	for j, c := range reg.Columns() {
		if p.Src[j] < 0 {
			p.Missing = append(p.Missing, c.Name)
		}
	}
	return p, nil
}

// Transformer turns source batches of one file into canonical Arrow records.
// It is not safe for concurrent use.
type Transformer struct {
	reg    *schema.Registry
	fileID string
	mem    memory.Allocator
	ids    *IDScope
	log    *zap.Logger

	cols []string
	proj Projection
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithAllocator sets the Arrow allocator used for records.
func WithAllocator(mem memory.Allocator) Option { return func(t *Transformer) { t.mem = mem } }

// WithIDScope enables unique_id checking against s.
func WithIDScope(s *IDScope) Option { return func(t *Transformer) { t.ids = s } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(t *Transformer) { t.log = l } }

// New returns a Transformer that prefixes every unique_id with fileID.
func New(reg *schema.Registry, fileID string, opts ...Option) *Transformer {
	t := &Transformer{reg: reg, fileID: fileID, mem: memory.DefaultAllocator, log: zap.NewNop()}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Projection returns the projection compiled for the last batch, if any.
func (t *Transformer) Projection() (Projection, bool) {
	return t.proj, t.cols != nil
}

// Transform projects b onto the registry. The returned record has exactly
// the artifact schema (unique_id first, then registry order) no matter which
// columns b carries. The caller owns the record and must Release it.
func (t *Transformer) Transform(b *SourceBatch) (arrow.Record, error) {
	if t.cols == nil || !slices.Equal(t.cols, b.Columns) {
		proj, err := Project(t.reg, b.Columns)
		if err != nil {
			return nil, err
		}
		if len(proj.Dropped) > 0 {
			t.log.Warn("transform: source columns not in registry are dropped",
				zap.String("file_id", t.fileID), zap.Strings("columns", proj.Dropped))
		}
		t.cols, t.proj = b.Columns, proj
	}

	rb := array.NewRecordBuilder(t.mem, t.reg.ArrowSchema())
	defer rb.Release()
	rb.Reserve(b.Len())

	if err := t.appendIDs(rb.Field(0).(*array.StringBuilder), b); err != nil {
		return nil, err
	}
	for j, col := range t.reg.Columns() {
		bld := rb.Field(j + 1)
		si := t.proj.Src[j]
		if si < 0 {
			bld.AppendNulls(b.Len())
			continue
		}
		for _, r := range b.Rows {
			v, err := Cast(col.Type, r.V[si])
			if err != nil {
				return nil, &CastError{Line: r.Line, Column: col.Name, Type: col.Type, Value: r.V[si], Err: err}
			}
			appendValue(bld, col.Type, v)
		}
	}
	return rb.NewRecord(), nil
}

func (t *Transformer) appendIDs(bld *array.StringBuilder, b *SourceBatch) error {
	for _, r := range b.Rows {
		raw, err := Cast(schema.Text, r.V[t.proj.RowNumber])
		if err != nil {
			return &CastError{Line: r.Line, Column: schema.RowNumberColumn, Type: schema.Text, Value: r.V[t.proj.RowNumber], Err: err}
		}
		if raw == nil {
			return &CastError{Line: r.Line, Column: schema.RowNumberColumn, Type: schema.Text, Err: ErrNullRowNumber}
		}
		id := UniqueID(t.fileID, raw.(string))
		if t.ids != nil {
			if err := t.ids.Check(id, r.Line); err != nil {
				return err
			}
		}
		bld.Append(id)
	}
	return nil
}

// UniqueID is the corpus-wide identifier of a row. rowNumber is kept verbatim,
// including any internal delimiters.
func UniqueID(fileID, rowNumber string) string {
	return fileID + "_" + rowNumber
}

func appendValue(bld array.Builder, t schema.Type, v any) {
	if v == nil {
		bld.AppendNull()
		return
	}
	switch t {
	case schema.Boolean:
		bld.(*array.BooleanBuilder).Append(v.(bool))
	case schema.Integer:
		bld.(*array.Int64Builder).Append(v.(int64))
	case schema.Float:
		bld.(*array.Float64Builder).Append(v.(float64))
	case schema.Date:
		bld.(*array.Date32Builder).Append(arrow.Date32FromTime(v.(time.Time)))
	case schema.Time:
		bld.(*array.Time64Builder).Append(arrow.Time64(v.(time.Duration).Microseconds()))
	default:
		bld.(*array.StringBuilder).Append(v.(string))
	}
}
