package transformer

// Row is one source record aligned to its batch's Columns. V holds parsed
// values (see the package doc for the per-type representation) or nil.
type Row struct {
	Line int
	V    []any
}

// SourceBatch is a bounded, ordered chunk of rows read from one source file.
// Columns is shared by every batch of a file and must not be mutated.
type SourceBatch struct {
	Seq     int
	Columns []string
	Rows    []Row
}

// Len is the number of rows in the batch.
func (b *SourceBatch) Len() int { return len(b.Rows) }
