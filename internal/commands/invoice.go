package commands

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ledgerlink-dev/ledgerlink/internal/model"
	"github.com/ledgerlink-dev/ledgerlink/internal/statement"
)

// The invoice lifecycle belongs to the invoicing collaborator; these commands
// only maintain the local mirror the matching engine reads.
func newInvoiceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Maintain the local invoice mirror",
	}
	cmd.AddCommand(newInvoiceAddCommand())
	cmd.AddCommand(newInvoiceListCommand())
	return cmd
}

func newInvoiceAddCommand() *cobra.Command {
	var number string
	var total string
	var currency string
	var counterparty string
	var reference string
	var issue string
	var due string
	var status string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an invoice to match against",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			amount, err := statement.ParseAmount(total)
			if err != nil {
				return err
			}

			inv := &model.Invoice{
				ID:               uuid.NewString(),
				Number:           number,
				PaymentReference: reference,
				CounterpartyName: counterparty,
				Total:            amount,
				Currency:         currency,
				Status:           model.InvoiceStatus(status),
			}
			if issue != "" {
				if inv.IssueDate, err = time.Parse("2006-01-02", issue); err != nil {
					return fmt.Errorf("parsing issue date: %w", err)
				}
			}
			if due != "" {
				if inv.DueDate, err = time.Parse("2006-01-02", due); err != nil {
					return fmt.Errorf("parsing due date: %w", err)
				}
			}

			if err := e.st.SaveInvoice(cmd.Context(), inv); err != nil {
				return err
			}
			fmt.Printf("Added invoice %s\n", inv.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&number, "number", "", "invoice number")
	cmd.Flags().StringVar(&total, "total", "", "invoice total (required)")
	_ = cmd.MarkFlagRequired("total")
	cmd.Flags().StringVar(&currency, "currency", "EUR", "invoice currency")
	cmd.Flags().StringVar(&counterparty, "counterparty", "", "vendor name")
	cmd.Flags().StringVar(&reference, "reference", "", "structured payment reference")
	cmd.Flags().StringVar(&issue, "issue", "", "issue date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&status, "status", string(model.InvoicePending), "invoice status")

	return cmd
}

func newInvoiceListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open invoices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			invoices, err := e.st.ListOpenInvoices(cmd.Context())
			if err != nil {
				return err
			}
			if len(invoices) == 0 {
				fmt.Println("No open invoices.")
				return nil
			}
			for _, inv := range invoices {
				due := "-"
				if !inv.DueDate.IsZero() {
					due = inv.DueDate.Format("2006-01-02")
				}
				fmt.Printf("%s  %-12s %10s %s  due %s  %s\n",
					inv.ID, inv.Number, inv.Total.StringFixed(2), inv.Currency, due, inv.CounterpartyName)
			}
			return nil
		},
	}
}
