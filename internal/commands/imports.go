package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ledgerlink-dev/ledgerlink/internal/importer"
)

func newImportCommand() *cobra.Command {
	var accountID string
	var format string
	var encoding string
	var updateExisting bool
	var strict bool

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import bank statement files",
		Long: "Import the given statement files, or every CSV waiting in the\n" +
			"import/ directory when no files are named.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			opts := importer.Options{
				Format:         format,
				Encoding:       encoding,
				SkipDuplicates: !strict,
				UpdateExisting: updateExisting,
			}
			if encoding == "" {
				opts.Encoding = e.cfg.Import.Encoding
			}

			im := importer.New(e.st, e.log)

			files, fromDir, err := resolveImportFiles(args, accountID)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Println("Nothing to import.")
				return nil
			}

			results := im.ImportBatch(cmd.Context(), files, opts)
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					fmt.Printf("%s: ERROR: %v\n", r.File.Path, r.Err)
					continue
				}
				s := r.Stats
				fmt.Printf("%s: %d rows, %d imported, %d skipped, %d updated, %d errors\n",
					r.File.Path, s.Total, s.Imported, s.Skipped, s.Updated, s.Errors)
				if fromDir {
					if err := importer.MarkProcessed(".", filepath.Base(r.File.Path)); err != nil {
						fmt.Printf("  warning: %v\n", err)
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "account the statements belong to (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVar(&format, "format", "", "statement format (generic, kbc, belfius, ing)")
	cmd.Flags().StringVar(&encoding, "encoding", "", "statement encoding (default: auto-detect)")
	cmd.Flags().BoolVar(&updateExisting, "update-existing", false, "refresh category suggestions on duplicates instead of skipping")
	cmd.Flags().BoolVar(&strict, "strict", false, "treat duplicates as errors instead of skipping")

	return cmd
}

func resolveImportFiles(args []string, accountID string) ([]importer.BatchFile, bool, error) {
	if len(args) > 0 {
		files := make([]importer.BatchFile, len(args))
		for i, path := range args {
			files[i] = importer.BatchFile{AccountID: accountID, Path: path}
		}
		return files, false, nil
	}

	scanned, err := importer.Scan(".")
	if err != nil {
		return nil, false, err
	}
	files := make([]importer.BatchFile, len(scanned))
	for i, f := range scanned {
		files[i] = importer.BatchFile{AccountID: accountID, Path: f.Path}
	}
	return files, true, nil
}

func newPreviewCommand() *cobra.Command {
	var accountID string
	var format string
	var encoding string

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Show what an import would do, without persisting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			im := importer.New(e.st, e.log)
			p, err := im.PreviewStatement(cmd.Context(), accountID, raw, importer.Options{
				Format:   format,
				Encoding: encoding,
			})
			if err != nil {
				return err
			}

			fmt.Printf("%d rows: %d new, %d duplicates\n\n", p.Total, p.NewCount, p.DuplicateCount)
			for _, row := range p.Rows {
				dup := " "
				if row.IsDuplicate {
					dup = "D"
				}
				cat := row.Category
				if cat == "" {
					cat = "-"
				}
				fmt.Printf("%s %s  %10s  %-14s %s\n",
					dup, row.Date.Format("2006-01-02"), row.Amount, cat, row.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "account the statement belongs to (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVar(&format, "format", "", "statement format (generic, kbc, belfius, ing)")
	cmd.Flags().StringVar(&encoding, "encoding", "", "statement encoding (default: auto-detect)")

	return cmd
}
