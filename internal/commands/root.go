package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgerlink-dev/ledgerlink/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "ledgerlink",
		Short:   "Bank statement ingestion and invoice reconciliation",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "ledgerlink.yaml", "path to the configuration file")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newPreviewCommand())
	rootCmd.AddCommand(newSuggestCommand())
	rootCmd.AddCommand(newSweepCommand())
	rootCmd.AddCommand(newConfirmCommand())
	rootCmd.AddCommand(newUnmatchCommand())
	rootCmd.AddCommand(newIgnoreCommand())
	rootCmd.AddCommand(newUnignoreCommand())
	rootCmd.AddCommand(newInvoiceCommand())

	return rootCmd
}
