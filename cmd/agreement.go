package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/woundlabel/internal/export"
	"github.com/lehigh-university-libraries/woundlabel/internal/report"
)

func newAgreementCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		output string
		tables bool
	)

	cmd := &cobra.Command{
		Use:   "agreement",
		Short: "Print inter-rater agreement from the label store",
		Long: `Recomputes the classification and findings tables from every stored
label record and prints pairwise Cohen's kappa between the rater roles.

Only images labeled by every role present in the store are compared.`,
		Example: `  # Human readable summary
  woundlabel agreement

  # YAML report written to a file
  woundlabel agreement --format yaml --output agreement.yaml

  # Include the derived tables
  woundlabel agreement --tables`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "yaml" {
				return fmt.Errorf("unsupported format: %s (supported: text, yaml)", format)
			}

			store, err := openLabelStore(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.LoadAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load label records: %w", err)
			}
			d := export.Derive(records)

			if format == "yaml" {
				r := report.Build(d.Records, d.Pivot, d.Findings, d.Summary)
				if output != "" {
					return r.Save(output)
				}
				data, err := r.Marshal()
				if err != nil {
					return err
				}
				if _, err := cmd.OutOrStdout().Write(data); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
				return nil
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			if tables {
				if err := printTables(w, d); err != nil {
					return err
				}
			}
			d.Summary.PrintSummary(w)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().BoolVar(&tables, "tables", false, "Print the classification and findings tables (text format)")

	return cmd
}

func printTables(w io.Writer, d export.Derived) error {
	for _, t := range []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{export.PivotName, d.Pivot.Header(), d.Pivot.Rows()},
		{export.FindingsName, d.Findings.Header(), d.Findings.Rows()},
	} {
		data, err := export.EncodeCSV(t.header, t.rows)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "# %s\n%s\n", t.name, data)
	}
	if d.Pivot.Ignored > 0 {
		fmt.Fprintf(w, "# %d repeated labels ignored (first label per image and role is used)\n\n", d.Pivot.Ignored)
	}
	return nil
}
