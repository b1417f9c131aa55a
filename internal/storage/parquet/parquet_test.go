package parquet

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stopprep/internal/schema"
	"stopprep/internal/transformer"
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.New(
		schema.Column{Name: "raw_row_number", Type: schema.Text},
		schema.Column{Name: "date", Type: schema.Date},
		schema.Column{Name: "time", Type: schema.Time},
		schema.Column{Name: "lat", Type: schema.Float},
		schema.Column{Name: "subject_age", Type: schema.Integer},
		schema.Column{Name: "arrest_made", Type: schema.Boolean},
	)
	require.NoError(t, err)
	return reg
}

func record(t *testing.T, reg *schema.Registry, from, n int) arrow.Record {
	t.Helper()
	b := &transformer.SourceBatch{Columns: []string{"raw_row_number", "date", "time", "lat", "subject_age", "arrest_made"}}
	for i := from; i < from+n; i++ {
		b.Rows = append(b.Rows, transformer.Row{Line: i + 1, V: []any{
			strconv.Itoa(i),
			time.Date(2017, 1, 1+i%28, 0, 0, 0, 0, time.UTC),
			time.Duration(i%86400) * time.Second,
			37.5 + float64(i)/1000,
			nil,
			i%2 == 0,
		}})
	}
	rec, err := transformer.New(reg, "dept01").Transform(b)
	require.NoError(t, err)
	return rec
}

func writeFile(t *testing.T, path string, sc *arrow.Schema, opt Options, recs ...arrow.Record) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := NewWriter(f, sc, opt)
	require.NoError(t, err)
	for _, r := range recs {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "second Close is a no-op")
	require.NoError(t, f.Close(), "writer must not close the sink")
}

func TestRoundTrip(t *testing.T) {
	reg := testRegistry(t)
	for _, codec := range []string{"", "zstd", "gzip", "none"} {
		t.Run("codec="+codec, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.parquet")
			r1, r2 := record(t, reg, 1, 100), record(t, reg, 101, 50)
			defer r1.Release()
			defer r2.Release()
			writeFile(t, path, reg.ArrowSchema(), Options{Compression: codec}, r1, r2)

			info, err := Stat(path)
			require.NoError(t, err)
			assert.Equal(t, int64(150), info.Rows)
			assert.Equal(t, reg.ArrowSchema().NumFields(), info.Schema.NumFields())

			var ids []string
			var total int64
			err = ReadFile(context.Background(), path, nil, func(rec arrow.Record) error {
				c, err := Conform(rec, reg.ArrowSchema())
				if err != nil {
					return err
				}
				defer c.Release()
				assert.True(t, c.Schema().Equal(reg.ArrowSchema()))
				col := c.Column(0).(*array.String)
				for i := 0; i < col.Len(); i++ {
					ids = append(ids, col.Value(i))
				}
				total += c.NumRows()
				assert.Equal(t, c.NumRows(), int64(c.Column(5).NullN()), "subject_age is all null")
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, int64(150), total)
			assert.Equal(t, "dept01_1", ids[0])
			assert.Equal(t, "dept01_150", ids[len(ids)-1])
		})
	}
}

func TestEmptyFile(t *testing.T) {
	reg := testRegistry(t)
	path := filepath.Join(t.TempDir(), "empty.parquet")
	writeFile(t, path, reg.ArrowSchema(), Options{})

	info, err := Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Rows)
	assert.Equal(t, reg.ArrowSchema().NumFields(), info.Schema.NumFields())

	calls := 0
	require.NoError(t, ReadFile(context.Background(), path, nil, func(arrow.Record) error { calls++; return nil }))
	assert.Zero(t, calls)
}

func TestWriterRejectsForeignSchema(t *testing.T) {
	reg := testRegistry(t)
	other, err := schema.New(schema.Column{Name: "raw_row_number", Type: schema.Text})
	require.NoError(t, err)
	rec := record(t, reg, 1, 1)
	defer rec.Release()

	f, err := os.Create(filepath.Join(t.TempDir(), "x.parquet"))
	require.NoError(t, err)
	defer f.Close()
	w, err := NewWriter(f, other.ArrowSchema(), Options{})
	require.NoError(t, err)
	assert.Error(t, w.Write(rec))
	require.NoError(t, w.Close())
	assert.Error(t, w.Write(rec), "write after close")
}

func TestCodec(t *testing.T) {
	for _, ok := range []string{"", "snappy", "ZSTD", "gzip", "none"} {
		_, err := Codec(ok)
		assert.NoError(t, err, ok)
	}
	_, err := Codec("lz5")
	assert.Error(t, err)
}

func TestConformMismatch(t *testing.T) {
	reg := testRegistry(t)
	rec := record(t, reg, 1, 1)
	defer rec.Release()
	other, err := schema.New(schema.Column{Name: "raw_row_number", Type: schema.Text})
	require.NoError(t, err)
	_, err = Conform(rec, other.ArrowSchema())
	assert.Error(t, err)
}

func TestColumnFill(t *testing.T) {
	reg := testRegistry(t)
	path := filepath.Join(t.TempDir(), "fill.parquet")
	r1, r2 := record(t, reg, 1, 10), record(t, reg, 11, 5)
	defer r1.Release()
	defer r2.Release()
	writeFile(t, path, reg.ArrowSchema(), Options{}, r1, r2)

	fills, rows, err := ColumnFill(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(15), rows)
	require.Len(t, fills, reg.ArrowSchema().NumFields())
	assert.Equal(t, Fill{Name: schema.UniqueIDColumn, NonNull: 15}, fills[0])
	assert.Equal(t, Fill{Name: "subject_age", NonNull: 0}, fills[5])
	assert.Equal(t, Fill{Name: "arrest_made", NonNull: 15}, fills[6])

	_, _, err = ColumnFill(context.Background(), filepath.Join(t.TempDir(), "missing.parquet"), nil)
	require.Error(t, err)
}

func TestReadFileAcrossRowGroups(t *testing.T) {
	reg := testRegistry(t)
	path := filepath.Join(t.TempDir(), "groups.parquet")
	r1, r2 := record(t, reg, 1, 100), record(t, reg, 101, 50)
	defer r1.Release()
	defer r2.Release()
	writeFile(t, path, reg.ArrowSchema(), Options{RowGroupRows: 40}, r1, r2)

	info, err := Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.RowGroups, 1)

	var total int64
	err = ReadFile(context.Background(), path, nil, func(rec arrow.Record) error {
		total += rec.NumRows()
		return nil
	})
	require.NoError(t, err, "reaching the end of the file is not an error")
	assert.Equal(t, int64(150), total)
}
