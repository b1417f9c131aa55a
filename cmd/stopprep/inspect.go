package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/spf13/cobra"

	"stopprep/internal/schema"
	"stopprep/internal/storage/parquet"
)

func newInspectCommand(stdout io.Writer) *cobra.Command {
	var fields, fill bool
	cmd := &cobra.Command{
		Use:   "inspect artifact.parquet [...]",
		Short: "Show row counts and schema conformance of Parquet artifacts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			want := schema.Default().ArrowSchema()
			for _, path := range args {
				info, err := parquet.Stat(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "%s\n  rows: %d\n  row groups: %d\n", path, info.Rows, info.RowGroups)
				if diff := schemaDiff(info.Schema, want); len(diff) == 0 {
					fmt.Fprintln(stdout, "  schema: canonical")
				} else {
					fmt.Fprintln(stdout, "  schema: differs from canonical")
					for _, d := range diff {
						fmt.Fprintln(stdout, "    "+d)
					}
				}
				if fields {
					if err := printFields(stdout, info.Schema); err != nil {
						return err
					}
				}
				if fill {
					if err := printFill(cmd.Context(), stdout, path); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fields, "fields", false, "list every field of the file schema")
	cmd.Flags().BoolVar(&fill, "fill", false, "scan the file and report the columns that carry data")
	return cmd
}

// schemaDiff lists positional name or type mismatches between got and want.
func schemaDiff(got, want *arrow.Schema) []string {
	var out []string
	if got.NumFields() != want.NumFields() {
		out = append(out, fmt.Sprintf("%d fields, want %d", got.NumFields(), want.NumFields()))
	}
	n := min(got.NumFields(), want.NumFields())
	for i := 0; i < n; i++ {
		g, w := got.Field(i), want.Field(i)
		if g.Name != w.Name || !arrow.TypeEqual(g.Type, w.Type) {
			out = append(out, fmt.Sprintf("field %d: %s %s, want %s %s", i, g.Name, g.Type, w.Name, w.Type))
		}
	}
	return out
}

func printFields(w io.Writer, sc *arrow.Schema) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, f := range sc.Fields() {
		fmt.Fprintf(tw, "    %d\t%s\t%s\n", i, f.Name, f.Type)
	}
	return tw.Flush()
}

// printFill lists the columns with at least one non-null value and the
// share of rows they fill.
func printFill(ctx context.Context, w io.Writer, path string) error {
	fills, rows, err := parquet.ColumnFill(ctx, path, nil)
	if err != nil {
		return err
	}
	var filled []parquet.Fill
	for _, f := range fills {
		if f.NonNull > 0 {
			filled = append(filled, f)
		}
	}
	fmt.Fprintf(w, "  columns with data: %d of %d\n", len(filled), len(fills))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, f := range filled {
		fmt.Fprintf(tw, "    %s\t%d rows\t%.1f%%\n", f.Name, f.NonNull, 100*float64(f.NonNull)/float64(rows))
	}
	return tw.Flush()
}
