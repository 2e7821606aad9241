package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/SscSPs/txn_ingest/internal/ingest/columns"
	"github.com/SscSPs/txn_ingest/internal/ingest/tabular"
)

func newAnalyzeCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Infer the column mapping of a CSV or delimited export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			return runAnalyze(cmd.OutOrStdout(), data, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full analysis as JSON")

	return cmd
}

func runAnalyze(out io.Writer, data []byte, asJSON bool) error {
	table, err := tabular.Read(data)
	if err != nil {
		return fmt.Errorf("parsing file: %w", err)
	}
	analysis := columns.Analyze(table.Rows)

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	}

	fmt.Fprintf(out, "Delimiter:   %q\n", table.Delimiter)
	fmt.Fprintf(out, "Header row:  %t\n", analysis.HasHeader)
	fmt.Fprintf(out, "Fingerprint: %s\n", analysis.Fingerprint)
	if !analysis.Recognized() {
		fmt.Fprintln(out, "Format not recognized: no date and amount columns found")
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COL\tHEADER\tROLE\tDATE\tAMOUNT\tTEXT")
	for _, c := range analysis.Columns {
		role := string(c.Role)
		if role == "" {
			role = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.2f\t%.2f\n", c.Index, c.Header, role, c.DateScore, c.AmountScore, c.TextScore)
	}
	return tw.Flush()
}
