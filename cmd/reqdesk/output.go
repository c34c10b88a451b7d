package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"reqdesk/cmd/reqdesk/ui"

	"github.com/spf13/cobra"
)

func (a *app) styles() ui.Styles {
	return ui.NewStyles(ui.ThemeFor(a.cfg.UI.Theme))
}

// printTable writes tbl to the command's output.
func (a *app) printTable(cmd *cobra.Command, tbl *ui.Listing) {
	fmt.Fprint(cmd.OutOrStdout(), tbl.View(a.styles()))
}

// printFields writes label/value pairs in aligned columns, skipping empty
// values.
func printFields(w io.Writer, pairs ...string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		fmt.Fprintf(tw, "%s:\t%s\n", pairs[i], pairs[i+1])
	}
	_ = tw.Flush()
}

// changed reports whether the flag was set on the command line.
func changed(cmd *cobra.Command, name string) bool {
	return cmd.Flags().Changed(name)
}

// idSuffix renders " (id)" when the backend returned one.
func idSuffix(id string) string {
	if id == "" {
		return ""
	}
	return " (" + id + ")"
}
