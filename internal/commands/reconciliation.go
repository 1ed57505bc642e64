package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgerlink-dev/ledgerlink/internal/model"
	"github.com/ledgerlink-dev/ledgerlink/internal/reconcile"
)

func newConfirmCommand() *cobra.Command {
	var decider string

	cmd := &cobra.Command{
		Use:   "confirm <invoice-id> <transaction-id>",
		Short: "Confirm that a transaction pays an invoice",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			svc := reconcile.NewService(e.st, e.cfg.MatchConfig(), e.log)
			m, err := svc.ConfirmMatch(cmd.Context(), args[0], args[1], model.DecidedByHuman, decider)
			if err != nil {
				return err
			}
			fmt.Printf("Confirmed match %s (score %d)\n", m.ID, m.Score)
			return nil
		},
	}

	cmd.Flags().StringVar(&decider, "decider", "", "user reference recorded on the match")

	return cmd
}

func newUnmatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unmatch <match-id>",
		Short: "Undo a match, reverting the transaction and invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			svc := reconcile.NewService(e.st, e.cfg.MatchConfig(), e.log)
			if err := svc.Unmatch(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Match undone.")
			return nil
		},
	}
}

func newIgnoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ignore <transaction-id>",
		Short: "Exclude a transaction from reconciliation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			svc := reconcile.NewService(e.st, e.cfg.MatchConfig(), e.log)
			if err := svc.Ignore(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Transaction ignored.")
			return nil
		},
	}
}

func newUnignoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unignore <transaction-id>",
		Short: "Return an ignored transaction to the reconciliation pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			svc := reconcile.NewService(e.st, e.cfg.MatchConfig(), e.log)
			if err := svc.Unignore(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Transaction restored.")
			return nil
		},
	}
}
