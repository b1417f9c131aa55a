package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stopprep/internal/schema"
)

func newSchemaCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the canonical output columns",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return printSchema(stdout, schema.Default())
		},
	}
}

func printSchema(w io.Writer, reg *schema.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCOLUMN\tTYPE\tPARQUET")
	for i, f := range reg.ArrowSchema().Fields() {
		typ := "derived"
		if c, _, ok := reg.Lookup(f.Name); ok {
			typ = c.Type.String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, f.Name, typ, f.Type)
	}
	return tw.Flush()
}
