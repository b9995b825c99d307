package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/woundlabel/internal/config"
)

// rootOptions carries state resolved once before any subcommand runs
type rootOptions struct {
	cfg *config.Config
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "woundlabel",
		Short: "Manual wound image labeling with inter-rater agreement",
		Long: `Woundlabel serves wound images to expert raters one at a time, records
whether each wound is altered along with its findings, and measures how
well Surgeon, Dermatologist and Nurse raters agree using Cohen's kappa.

Derived tables are pushed to a Google Drive folder (or a local directory)
after every submission.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := config.InitLogger(cfg.Log); err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newAgreementCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newHashPasswordCmd())

	return cmd
}
