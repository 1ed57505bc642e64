package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ledgerlink-dev/ledgerlink/internal/config"
)

func newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledgerlink workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runInit(absDir)
		},
	}
	return cmd
}

func runInit(dir string) error {
	for _, d := range []string{"import", filepath.Join("import", "processed")} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfgPath := filepath.Join(dir, "ledgerlink.yaml")
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(dir, "ledgerlink.db")
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	fmt.Printf("Initialized ledgerlink workspace in %s\n", dir)
	fmt.Println("Drop statement CSVs into import/ and run 'ledgerlink import'.")
	return nil
}
