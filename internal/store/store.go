// Package store defines the persistence contracts for transactions, invoices
// and matches. Implementations must provide per-record atomicity and act as
// the arbiter for the one-active-match invariant: concurrent confirmations of
// the same transaction or invoice have exactly one winner.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerlink-dev/ledgerlink/internal/model"
)

var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate means a uniqueness constraint was hit
	// ((account, fingerprint) or (invoice, transaction)).
	ErrDuplicate = errors.New("duplicate")
	// ErrConflict means the write would violate the one-active-match
	// invariant.
	ErrConflict = errors.New("conflict")
)

// TransactionFilter narrows ListTransactions. Zero values mean "any".
type TransactionFilter struct {
	AccountID string
	Status    model.ReconciliationStatus
	Sign      int // -1 expenses only, +1 income only, 0 any
	From, To  time.Time
	// Absolute-amount band; zero bounds are unbounded.
	AmountAbsMin decimal.Decimal
	AmountAbsMax decimal.Decimal
}

// Matches reports whether a transaction passes the filter.
func (f TransactionFilter) Matches(t *model.Transaction) bool {
	if f.AccountID != "" && t.AccountID != f.AccountID {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Sign < 0 && !t.Amount.IsNegative() {
		return false
	}
	if f.Sign > 0 && !t.Amount.IsPositive() {
		return false
	}
	if !f.From.IsZero() && t.ExecutionDate.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.ExecutionDate.After(f.To) {
		return false
	}
	abs := t.Amount.Abs()
	if !f.AmountAbsMin.IsZero() && abs.LessThan(f.AmountAbsMin) {
		return false
	}
	if !f.AmountAbsMax.IsZero() && abs.GreaterThan(f.AmountAbsMax) {
		return false
	}
	return true
}

// TransactionStore persists bank transactions keyed by account + fingerprint.
type TransactionStore interface {
	// SaveTransaction inserts a transaction. Returns ErrDuplicate when the
	// (account, fingerprint) pair already exists.
	SaveTransaction(ctx context.Context, t *model.Transaction) error
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	// FindByFingerprint returns ErrNotFound when no such import exists.
	FindByFingerprint(ctx context.Context, accountID, fp string) (*model.Transaction, error)
	UpdateTransaction(ctx context.Context, t *model.Transaction) error
	ListTransactions(ctx context.Context, f TransactionFilter) ([]*model.Transaction, error)
}

// InvoiceStore is the read-mostly view of the invoicing collaborator.
type InvoiceStore interface {
	SaveInvoice(ctx context.Context, inv *model.Invoice) error
	GetInvoice(ctx context.Context, id string) (*model.Invoice, error)
	// ListOpenInvoices returns invoices in pending or overdue status.
	ListOpenInvoices(ctx context.Context) ([]*model.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, id string, status model.InvoiceStatus) error
}

// MatchStore persists match records.
type MatchStore interface {
	// SaveMatch inserts a match. Returns ErrDuplicate for a repeated
	// (invoice, transaction) pair and ErrConflict when saving a confirmed
	// match while either side already has one.
	SaveMatch(ctx context.Context, m *model.Match) error
	GetMatch(ctx context.Context, id string) (*model.Match, error)
	// UpdateMatch rewrites a match. Promoting to confirmed is subject to the
	// same ErrConflict arbitration as SaveMatch.
	UpdateMatch(ctx context.Context, m *model.Match) error
	// MatchForPair returns the match record for an (invoice, transaction)
	// pair regardless of status, or ErrNotFound.
	MatchForPair(ctx context.Context, invoiceID, transactionID string) (*model.Match, error)
	// ActiveMatchForInvoice returns the confirmed match, or ErrNotFound.
	ActiveMatchForInvoice(ctx context.Context, invoiceID string) (*model.Match, error)
	ActiveMatchForTransaction(ctx context.Context, transactionID string) (*model.Match, error)
}

// Store is the full persistence contract.
type Store interface {
	TransactionStore
	InvoiceStore
	MatchStore
	Close() error
}
