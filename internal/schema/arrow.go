package schema

import "github.com/apache/arrow-go/v18/arrow"

// ArrowType is the physical Arrow type used to store values of t.
func ArrowType(t Type) arrow.DataType {
	switch t {
	case Boolean:
		return arrow.FixedWidthTypes.Boolean
	case Integer:
		return arrow.PrimitiveTypes.Int64
	case Float:
		return arrow.PrimitiveTypes.Float64
	case Date:
		return arrow.FixedWidthTypes.Date32
	case Time:
		return arrow.FixedWidthTypes.Time64us
	default:
		return arrow.BinaryTypes.String
	}
}

// ArrowSchema is the artifact schema: unique_id followed by every canonical
// column in registry order. All canonical columns are nullable.
func (r *Registry) ArrowSchema() *arrow.Schema { return r.schema }

func buildArrowSchema(cols []Column) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(cols)+1)
	fields = append(fields, arrow.Field{Name: UniqueIDColumn, Type: arrow.BinaryTypes.String})
	for _, c := range cols {
		fields = append(fields, arrow.Field{Name: c.Name, Type: ArrowType(c.Type), Nullable: true})
	}
	return arrow.NewSchema(fields, nil)
}
