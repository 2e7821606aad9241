package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	"github.com/SscSPs/txn_ingest/internal/ingest/columns"
	"github.com/SscSPs/txn_ingest/internal/ingest/dedup"
	"github.com/SscSPs/txn_ingest/internal/ingest/rowmap"
	"github.com/SscSPs/txn_ingest/internal/ingest/statement"
	"github.com/SscSPs/txn_ingest/internal/ingest/tabular"
)

type previewOptions struct {
	text        bool
	mappingPath string
	asJSON      bool
	today       string
}

func newPreviewCommand() *cobra.Command {
	var opts previewOptions

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Extract transactions from a file without storing them",
		Long: "Runs the tabular or statement-text pipeline on a local file and flags\n" +
			"repeats within the file. Nothing is written to the database.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			preview, err := buildPreview(data, opts)
			if err != nil {
				return err
			}
			return printPreview(cmd.OutOrStdout(), preview, opts.asJSON)
		},
	}

	cmd.Flags().BoolVar(&opts.text, "text", false, "treat the file as plain statement text")
	cmd.Flags().StringVar(&opts.mappingPath, "mapping", "", "JSON column mapping to use instead of inference")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the preview as JSON")
	cmd.Flags().StringVar(&opts.today, "today", "", "reference date for yearless statement dates (YYYY-MM-DD)")

	return cmd
}

func buildPreview(data []byte, opts previewOptions) (*domain.ImportPreview, error) {
	var preview *domain.ImportPreview
	if opts.text {
		stmtOpts := statement.Options{Source: domain.SourceStatementText}
		if opts.today != "" {
			d, err := civil.ParseDate(opts.today)
			if err != nil {
				return nil, fmt.Errorf("invalid --today: %w", err)
			}
			stmtOpts.Today = d
		}
		res := statement.Extract(string(data), stmtOpts)
		preview = &domain.ImportPreview{
			Source:           domain.SourceStatementText,
			FormatRecognized: res.FormatRecognized,
			Strategy:         string(res.Strategy),
			Transactions:     res.Transactions,
		}
		for _, w := range res.Warnings {
			if w != apperrors.ErrFormatNotRecognized.Error() {
				preview.Warnings = append(preview.Warnings, w)
			}
		}
	} else {
		table, err := tabular.Read(data)
		if err != nil {
			return nil, fmt.Errorf("parsing file: %w", err)
		}
		analysis := columns.Analyze(table.Rows)
		mapping := analysis.Mapping
		if opts.mappingPath != "" {
			if mapping, err = readMapping(opts.mappingPath); err != nil {
				return nil, err
			}
		}
		preview = &domain.ImportPreview{
			Source:           domain.SourceTabular,
			FormatRecognized: mapping.Recognized(),
			Fingerprint:      analysis.Fingerprint,
			Mapping:          &mapping,
		}
		res := rowmap.Map(table.Rows, mapping, rowmap.Options{Source: domain.SourceTabular})
		preview.Transactions = res.Transactions
		preview.Issues = res.Issues
	}

	if !preview.FormatRecognized {
		preview.Message = apperrors.ErrFormatNotRecognized.Error()
	}
	dedup.MarkWithinBatch(preview.Transactions, make(map[string]struct{}))
	preview.Dedup = dedup.Summarize(preview.Transactions)
	return preview, nil
}

func readMapping(path string) (domain.ColumnMapping, error) {
	var m domain.ColumnMapping
	raw, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("reading mapping: %w", err)
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("decoding mapping: %w", err)
	}
	if err := m.Validate(); err != nil {
		return m, err
	}
	return m, nil
}

func printPreview(out io.Writer, p *domain.ImportPreview, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	if !p.FormatRecognized {
		fmt.Fprintln(out, "Format not recognized: no transactions extracted")
		return nil
	}
	if p.Strategy != "" {
		fmt.Fprintf(out, "Strategy: %s\n", p.Strategy)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tAMOUNT\tDESCRIPTION\tSTATUS")
	for _, t := range p.Transactions {
		date := t.Date.String()
		if t.YearInferred {
			date += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", date, t.SignedAmount().StringFixed(2), t.Description, t.DedupStatus)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d transactions, %d duplicates within file, %d rows skipped\n",
		len(p.Transactions), p.Dedup.DuplicateWithinFile, len(p.Issues))
	for _, issue := range p.Issues {
		fmt.Fprintf(out, "  row %d: %s\n", issue.RowNumber, issue.Reason)
	}
	if len(p.Warnings) > 0 {
		fmt.Fprintf(out, "Warnings: %s\n", strings.Join(p.Warnings, "; "))
	}
	return nil
}
