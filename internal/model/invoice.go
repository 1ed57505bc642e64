package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoicePending   InvoiceStatus = "pending"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// Matchable reports whether invoices in this status are eligible match targets.
func (s InvoiceStatus) Matchable() bool {
	return s == InvoicePending || s == InvoiceOverdue
}

// Invoice is consumed read-only by the matching engine; its lifecycle is owned
// by the invoicing collaborator.
type Invoice struct {
	ID               string
	Number           string
	PaymentReference string
	CounterpartyName string
	Total            decimal.Decimal // positive
	Currency         string
	IssueDate        time.Time
	DueDate          time.Time
	Status           InvoiceStatus
}

// ReferenceDate returns the date matching measures proximity against:
// the due date when present, else the issue date. Zero when neither is set.
func (inv Invoice) ReferenceDate() time.Time {
	if !inv.DueDate.IsZero() {
		return inv.DueDate
	}
	return inv.IssueDate
}
