package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationStatus is the lifecycle state of a bank transaction.
type ReconciliationStatus string

const (
	StatusPending ReconciliationStatus = "pending"
	StatusMatched ReconciliationStatus = "matched"
	StatusIgnored ReconciliationStatus = "ignored"
)

// CandidateTransaction is a parsed statement row before it gains identity.
type CandidateTransaction struct {
	ExecutionDate       time.Time
	ValueDate           time.Time
	Amount              decimal.Decimal // negative = outflow
	Currency            string
	Description         string
	CounterpartyName    string
	CounterpartyAccount string
	Category            string
	CategoryConfidence  int // 0-100, only meaningful when Category is set
}

// Transaction is a persisted bank transaction.
//
// A transaction is Matched iff exactly one confirmed Match references it.
// Matched transactions are never deleted; removal is modeled as Ignored.
type Transaction struct {
	ID                  string
	AccountID           string
	Fingerprint         string // unique per account, see internal/fingerprint
	ExecutionDate       time.Time
	ValueDate           time.Time
	Amount              decimal.Decimal
	Currency            string
	Description         string
	CounterpartyName    string
	CounterpartyAccount string
	Status              ReconciliationStatus
	LinkedInvoiceID     string
	SuggestedCategory   string
	CategoryConfidence  int
	CreatedAt           time.Time
}

// IsExpense reports whether the transaction is an outflow.
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}
