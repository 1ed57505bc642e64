package model

import "time"

// Confidence classifies a match score into an action tier.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"   // score >= 90, eligible for auto-confirmation
	ConfidenceMedium Confidence = "medium" // 50-89, surfaced as a suggestion
	ConfidenceLow    Confidence = "low"    // < 50, manual review only
	ConfidenceManual Confidence = "manual" // created by a human, no score tier
)

// ConfidenceForScore maps a 0-100 score to its tier.
func ConfidenceForScore(score int) Confidence {
	switch {
	case score >= 90:
		return ConfidenceHigh
	case score >= 50:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// MatchStatus is the lifecycle state of a match record.
type MatchStatus string

const (
	MatchProposed  MatchStatus = "proposed"
	MatchConfirmed MatchStatus = "confirmed"
	MatchRejected  MatchStatus = "rejected"
)

// DecidedBy records who confirmed a match.
type DecidedBy string

const (
	DecidedBySystem DecidedBy = "system"
	DecidedByHuman  DecidedBy = "human"
)

// Match links a bank transaction to the invoice it pays.
//
// Unique on (InvoiceID, TransactionID). An invoice and a transaction each have
// at most one confirmed Match at a time; the store enforces this invariant.
type Match struct {
	ID            string
	InvoiceID     string
	TransactionID string
	Score         int // 0-100
	Confidence    Confidence
	Status        MatchStatus
	DecidedBy     DecidedBy
	DeciderID     string
	Notes         string
	DecidedAt     time.Time
	CreatedAt     time.Time
}

// Active reports whether the match currently binds its invoice and transaction.
func (m Match) Active() bool {
	return m.Status == MatchConfirmed
}
