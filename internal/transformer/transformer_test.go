package transformer

import (
	"errors"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"stopprep/internal/schema"
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.New(
		schema.Column{Name: "raw_row_number", Type: schema.Text},
		schema.Column{Name: "date", Type: schema.Date},
		schema.Column{Name: "lat", Type: schema.Float},
		schema.Column{Name: "subject_race", Type: schema.Text},
		schema.Column{Name: "subject_age", Type: schema.Integer},
		schema.Column{Name: "arrest_made", Type: schema.Boolean},
		schema.Column{Name: "time", Type: schema.Time},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

/*
TestTransform_ThreeRowExample covers the reference example: a source with
raw_row_number, date and subject_race produces ids "dept01_<n>", typed dates,
and typed nulls for every canonical column the source lacks.
*/
func TestTransform_ThreeRowExample(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	reg := testRegistry(t)
	b := &SourceBatch{
		Columns: []string{"raw_row_number", "date", "subject_race"},
		Rows: []Row{
			{Line: 2, V: []any{"1", day(2017, 1, 1), "white"}},
			{Line: 3, V: []any{"2", day(2017, 1, 2), nil}},
			{Line: 4, V: []any{"3", day(2017, 1, 3), "black"}},
		},
	}

	rec, err := New(reg, "dept01", WithAllocator(mem)).Transform(b)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	defer rec.Release()

	if !rec.Schema().Equal(reg.ArrowSchema()) {
		t.Fatalf("schema = %s, want %s", rec.Schema(), reg.ArrowSchema())
	}
	if got, want := rec.NumRows(), int64(3); got != want {
		t.Fatalf("rows = %d, want %d", got, want)
	}

	ids := rec.Column(0).(*array.String)
	for i, want := range []string{"dept01_1", "dept01_2", "dept01_3"} {
		if got := ids.Value(i); got != want {
			t.Fatalf("unique_id[%d] = %q, want %q", i, got, want)
		}
	}

	dates := rec.Column(2).(*array.Date32)
	if got, want := dates.Value(1), arrow.Date32FromTime(day(2017, 1, 2)); got != want {
		t.Fatalf("date[1] = %v, want %v", got, want)
	}

	lat := rec.Column(3)
	if lat.NullN() != 3 || !arrow.TypeEqual(lat.DataType(), arrow.PrimitiveTypes.Float64) {
		t.Fatalf("lat nulls=%d type=%s; want 3 typed float64 nulls", lat.NullN(), lat.DataType())
	}
	if !rec.Column(4).IsNull(1) {
		t.Fatalf("subject_race[1] should be null")
	}
	for _, c := range []int{5, 6, 7} {
		if rec.Column(c).NullN() != 3 {
			t.Fatalf("column %s should be all null", rec.ColumnName(c))
		}
	}
}

func TestTransform_PreservesDelimitersInRowNumber(t *testing.T) {
	reg := testRegistry(t)
	b := &SourceBatch{
		Columns: []string{"raw_row_number"},
		Rows:    []Row{{Line: 2, V: []any{"12|13|14"}}},
	}
	rec, err := New(reg, "ca_statewide").Transform(b)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	defer rec.Release()

	if got := rec.Column(0).(*array.String).Value(0); got != "ca_statewide_12|13|14" {
		t.Fatalf("unique_id = %q", got)
	}
}

func TestTransform_ShapeIndependentOfSourceColumns(t *testing.T) {
	reg := testRegistry(t)
	tr := New(reg, "f")

	a, err := tr.Transform(&SourceBatch{
		Columns: []string{"lat", "raw_row_number", "extra"},
		Rows:    []Row{{Line: 2, V: []any{1.5, "1", "x"}}},
	})
	if err != nil {
		t.Fatalf("Transform a: %v", err)
	}
	defer a.Release()

	b, err := New(reg, "g").Transform(&SourceBatch{
		Columns: []string{"raw_row_number", "subject_age", "arrest_made", "time"},
		Rows:    []Row{{Line: 2, V: []any{"1", int64(30), true, 90 * time.Minute}}},
	})
	if err != nil {
		t.Fatalf("Transform b: %v", err)
	}
	defer b.Release()

	if !a.Schema().Equal(b.Schema()) {
		t.Fatalf("schemas differ:\n%s\n%s", a.Schema(), b.Schema())
	}
	if got := a.Column(3).(*array.Float64).Value(0); got != 1.5 {
		t.Fatalf("lat = %v, want 1.5", got)
	}
	if got := b.Column(7).(*array.Time64).Value(0); got != arrow.Time64((90 * time.Minute).Microseconds()) {
		t.Fatalf("time = %v", got)
	}

	proj, ok := tr.Projection()
	if !ok {
		t.Fatalf("projection not compiled")
	}
	if len(proj.Dropped) != 1 || proj.Dropped[0] != "extra" {
		t.Fatalf("Dropped = %v, want [extra]", proj.Dropped)
	}
}

func TestTransform_CastErrorIsFatal(t *testing.T) {
	reg := testRegistry(t)
	b := &SourceBatch{
		Columns: []string{"raw_row_number", "subject_age"},
		Rows: []Row{
			{Line: 2, V: []any{"1", int64(20)}},
			{Line: 3, V: []any{"2", "twenty"}},
		},
	}
	_, err := New(reg, "f").Transform(b)

	var ce *CastError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *CastError", err)
	}
	if ce.Line != 3 || ce.Column != "subject_age" || ce.Type != schema.Integer {
		t.Fatalf("CastError = %+v", ce)
	}
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("errors.Is(err, ErrInvalidValue) = false")
	}
}

func TestTransform_NullRowNumber(t *testing.T) {
	reg := testRegistry(t)
	_, err := New(reg, "f").Transform(&SourceBatch{
		Columns: []string{"raw_row_number"},
		Rows:    []Row{{Line: 7, V: []any{nil}}},
	})
	if !errors.Is(err, ErrNullRowNumber) {
		t.Fatalf("err = %v, want ErrNullRowNumber", err)
	}
}

func TestProject(t *testing.T) {
	reg := testRegistry(t)

	if _, err := Project(reg, []string{"date"}); err == nil {
		t.Fatalf("Project without raw_row_number: error = nil")
	}
	if _, err := Project(reg, []string{"raw_row_number", "date", "date"}); err == nil {
		t.Fatalf("Project with duplicate column: error = nil")
	}

	p, err := Project(reg, []string{"foo", "date", "raw_row_number"})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if p.RowNumber != 2 || p.Src[0] != 2 || p.Src[1] != 1 || p.Src[2] != -1 {
		t.Fatalf("Project = %+v", p)
	}
	if got, want := len(p.Missing), reg.Len()-2; got != want {
		t.Fatalf("Missing = %v (len %d), want %d entries", p.Missing, got, want)
	}
}

func TestTransform_DuplicateIDs(t *testing.T) {
	reg := testRegistry(t)
	batch := func() *SourceBatch {
		return &SourceBatch{
			Columns: []string{"raw_row_number"},
			Rows:    []Row{{Line: 2, V: []any{"1"}}, {Line: 3, V: []any{"1"}}},
		}
	}

	warn := NewIDChecker(IDsWarn).Scope()
	rec, err := New(reg, "f", WithIDScope(warn)).Transform(batch())
	if err != nil {
		t.Fatalf("warn policy: %v", err)
	}
	rec.Release()
	if n, first := warn.Duplicates(); n != 1 || first != "f_1" {
		t.Fatalf("Duplicates() = %d, %q; want 1, f_1", n, first)
	}

	_, err = New(reg, "f", WithIDScope(NewIDChecker(IDsFail).Scope())).Transform(batch())
	var de *DuplicateIDError
	if !errors.As(err, &de) || de.ID != "f_1" || de.Line != 3 {
		t.Fatalf("fail policy err = %v, want DuplicateIDError f_1 line 3", err)
	}
}
