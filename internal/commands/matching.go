package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgerlink-dev/ledgerlink/internal/match"
	"github.com/ledgerlink-dev/ledgerlink/internal/model"
	"github.com/ledgerlink-dev/ledgerlink/internal/reconcile"
)

func newSuggestCommand() *cobra.Command {
	var minScore int
	var maxSuggestions int
	var accountID string

	cmd := &cobra.Command{
		Use:   "suggest <invoice-id>",
		Short: "Rank candidate transactions for an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			engine := match.NewEngine(e.st, e.cfg.MatchConfig(), e.log)
			suggestions, err := engine.SuggestForInvoice(cmd.Context(), args[0], match.SuggestOptions{
				MinScore:       minScore,
				MaxSuggestions: maxSuggestions,
				AccountID:      accountID,
			})
			if err != nil {
				return err
			}

			if len(suggestions) == 0 {
				fmt.Println("No suggestions.")
				return nil
			}
			for _, s := range suggestions {
				tx := s.Transaction
				fmt.Printf("%3d %-6s %s  %s  %10s  %s\n",
					s.Score, s.Confidence, tx.ID,
					tx.ExecutionDate.Format("2006-01-02"),
					tx.Amount.StringFixed(2), tx.Description)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&minScore, "min-score", 0, "minimum score (default from config)")
	cmd.Flags().IntVar(&maxSuggestions, "max", 0, "maximum suggestions (default from config)")
	cmd.Flags().StringVar(&accountID, "account", "", "restrict candidates to one account")

	return cmd
}

func newSweepCommand() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Find the best high-confidence candidate for every open invoice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			cfg := e.cfg.MatchConfig()
			engine := match.NewEngine(e.st, cfg, e.log)
			res, err := engine.AutoMatchable(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("%d invoices considered, %d auto-matchable\n", res.Considered, len(res.Items))
			if len(res.Items) == 0 {
				return nil
			}

			svc := reconcile.NewService(e.st, cfg, e.log)
			for _, item := range res.Items {
				tx := item.Suggestion.Transaction
				fmt.Printf("%3d %s %s -> %s %s\n",
					item.Suggestion.Score, item.Invoice.ID, item.Invoice.Number,
					tx.ID, tx.Description)

				if !confirm {
					if _, err := svc.ProposeMatch(cmd.Context(), item.Invoice.ID, tx.ID, item.Suggestion.Breakdown); err != nil {
						fmt.Printf("  warning: %v\n", err)
					}
					continue
				}
				if _, err := svc.ConfirmMatch(cmd.Context(), item.Invoice.ID, tx.ID, model.DecidedBySystem, ""); err != nil {
					fmt.Printf("  not confirmed: %v\n", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "confirm the high-confidence matches instead of only proposing them")

	return cmd
}
