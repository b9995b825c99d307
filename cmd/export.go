package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		destination string
		format      string
		includeRaw  bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Push the derived tables to the blob store once",
		Long: `Recomputes the derived tables from the label store and pushes them to the
configured destination. Existing files with the same name are replaced.`,
		Example: `  # Export using config.yaml / WOUNDLABEL_* settings
  woundlabel export

  # Export an xlsx workbook and the raw records to another folder
  woundlabel export --destination 1AbCdEf --format xlsx --raw`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("destination") {
				cfg.Export.Destination = destination
			}
			if cmd.Flags().Changed("format") {
				cfg.Export.Format = format
			}
			if cmd.Flags().Changed("raw") {
				cfg.Export.IncludeRaw = includeRaw
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			store, err := openLabelStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			blobs, err := openBlobStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			res, err := newExporter(blobs, cfg).Sync(cmd.Context(), store)
			if err != nil {
				return err
			}
			for _, o := range res.Outcomes {
				if o.Error != "" {
					slog.Error("Artifact failed", "name", o.Name, "error", o.Error)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", o.Name, o.RemoteID)
			}
			return res.Err()
		},
	}

	cmd.Flags().StringVarP(&destination, "destination", "d", "", "Destination folder id (overrides export.destination)")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Table format (csv, xlsx)")
	cmd.Flags().BoolVar(&includeRaw, "raw", false, "Also export every label record as parquet")

	return cmd
}
