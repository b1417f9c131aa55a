// Package schema holds the canonical column registry shared by every produced
// artifact.
//
// A Registry is an immutable value: it is built once (Default or New) and then
// passed explicitly to the reader, transformer, spool and merger. Nothing in
// this package keeps process-wide state, so tests and jobs can run with
// distinct registries side by side.
package schema

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/cockroachdb/errors"
)

const (
	// UniqueIDColumn is the leading identifier column of every artifact.
	UniqueIDColumn = "unique_id"
	// RowNumberColumn is the reserved source column used to build unique_id.
	RowNumberColumn = "raw_row_number"
)

// Type is the semantic type of a canonical column.
type Type uint8

const (
	Text Type = iota
	Boolean
	Integer
	Float
	Date
	Time
)

func (t Type) String() string {
	switch t {
	case Text:
		return "text"
	case Boolean:
		return "boolean"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Date:
		return "date"
	case Time:
		return "time"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// ParseType maps a type name onto a Type. It accepts the names produced by
// Type.String plus a few common aliases.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "string", "utf8":
		return Text, nil
	case "boolean", "bool":
		return Boolean, nil
	case "integer", "int", "bigint", "int64":
		return Integer, nil
	case "float", "double", "real", "float64":
		return Float, nil
	case "date":
		return Date, nil
	case "time":
		return Time, nil
	}
	return Text, errors.Newf("unknown column type %q", s)
}

// Column is one canonical (name, type) pair.
type Column struct {
	Name string
	Type Type
}

// Registry is the ordered, immutable canonical schema.
type Registry struct {
	cols   []Column
	index  map[string]int
	schema *arrow.Schema
}

// New builds a Registry from cols in the given order. Names must be unique and
// non-empty, unique_id is reserved, and raw_row_number must be present as text.
func New(cols ...Column) (*Registry, error) {
	r := &Registry{
		cols:  make([]Column, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	copy(r.cols, cols)

	for i, c := range r.cols {
		switch {
		case c.Name == "":
			return nil, errors.Newf("schema: column %d has an empty name", i)
		case c.Name == UniqueIDColumn:
			return nil, errors.Newf("schema: %q is reserved", UniqueIDColumn)
		}
		if _, dup := r.index[c.Name]; dup {
			return nil, errors.Newf("schema: duplicate column %q", c.Name)
		}
		r.index[c.Name] = i
	}

	i, ok := r.index[RowNumberColumn]
	if !ok {
		return nil, errors.Newf("schema: required column %q missing", RowNumberColumn)
	}
	if r.cols[i].Type != Text {
		return nil, errors.Newf("schema: %q must be text, got %s", RowNumberColumn, r.cols[i].Type)
	}

	r.schema = buildArrowSchema(r.cols)
	return r, nil
}

// MustNew is New for package-level tables known to be valid.
func MustNew(cols ...Column) *Registry {
	r, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return r
}

// Columns returns a copy of the canonical columns in registry order.
func (r *Registry) Columns() []Column {
	out := make([]Column, len(r.cols))
	copy(out, r.cols)
	return out
}

// Names returns the canonical column names in registry order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.cols))
	for i, c := range r.cols {
		out[i] = c.Name
	}
	return out
}

// Len is the number of canonical columns, excluding unique_id.
func (r *Registry) Len() int { return len(r.cols) }

// Lookup returns the column and its registry position.
func (r *Registry) Lookup(name string) (Column, int, bool) {
	i, ok := r.index[name]
	if !ok {
		return Column{}, -1, false
	}
	return r.cols[i], i, true
}

// TypeOf returns the declared type of name. Names that are not registered are
// treated as text.
func (r *Registry) TypeOf(name string) Type {
	if i, ok := r.index[name]; ok {
		return r.cols[i].Type
	}
	return Text
}

// Has reports whether name is a canonical column.
func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}
