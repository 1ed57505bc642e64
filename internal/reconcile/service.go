// Package reconcile is the state machine linking transactions and invoices.
//
// Transaction: pending -> matched -> pending (unmatch), pending -> ignored ->
// pending (unignore). A matched transaction must be unmatched before it can
// be ignored. Match: proposed -> confirmed | rejected; confirmed -> rejected
// on unmatch, which reverts both linked records. Every operation either fully
// succeeds or fully fails.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ledgerlink-dev/ledgerlink/internal/match"
	"github.com/ledgerlink-dev/ledgerlink/internal/model"
	"github.com/ledgerlink-dev/ledgerlink/internal/store"
)

// Service applies reconciliation transitions through the store, which
// arbitrates the one-active-match invariant under concurrency.
type Service struct {
	st  store.Store
	cfg match.Config
	log zerolog.Logger
	now func() time.Time
}

// NewService creates a reconciliation service.
func NewService(st store.Store, cfg match.Config, log zerolog.Logger) *Service {
	return &Service{st: st, cfg: cfg, log: log, now: time.Now}
}

// ConfirmMatch links a transaction to an invoice. It fails with
// store.ErrConflict when either side already has an active match or the
// transaction is ignored. A human decision gets manual confidence; a system
// decision is scored.
func (s *Service) ConfirmMatch(ctx context.Context, invoiceID, transactionID string, decidedBy model.DecidedBy, deciderID string) (*model.Match, error) {
	tx, err := s.st.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("loading transaction %s: %w", transactionID, err)
	}
	inv, err := s.st.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("loading invoice %s: %w", invoiceID, err)
	}

	switch tx.Status {
	case model.StatusMatched:
		return nil, fmt.Errorf("transaction %s already matched: %w", transactionID, store.ErrConflict)
	case model.StatusIgnored:
		return nil, fmt.Errorf("transaction %s is ignored: %w", transactionID, store.ErrConflict)
	}
	if _, err := s.st.ActiveMatchForInvoice(ctx, invoiceID); err == nil {
		return nil, fmt.Errorf("invoice %s already matched: %w", invoiceID, store.ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("checking invoice match: %w", err)
	}

	breakdown := s.cfg.Score(inv, tx)
	confidence := model.ConfidenceForScore(breakdown.Total)
	if decidedBy == model.DecidedByHuman {
		confidence = model.ConfidenceManual
	}

	now := s.now()
	m := &model.Match{
		ID:            uuid.NewString(),
		InvoiceID:     invoiceID,
		TransactionID: transactionID,
		Score:         breakdown.Total,
		Confidence:    confidence,
		Status:        model.MatchConfirmed,
		DecidedBy:     decidedBy,
		DeciderID:     deciderID,
		DecidedAt:     now,
		CreatedAt:     now,
	}

	// A proposed match for this pair is promoted rather than duplicated.
	if err := s.st.SaveMatch(ctx, m); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return s.promoteProposed(ctx, m)
		}
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("confirming match: %w", err)
		}
		return nil, fmt.Errorf("storing match: %w", err)
	}

	if err := s.applyConfirm(ctx, m, tx); err != nil {
		// Undo the reservation so the pair is not left half-linked.
		m.Status = model.MatchRejected
		_ = s.st.UpdateMatch(ctx, m)
		return nil, err
	}

	s.log.Info().
		Str("invoice_id", invoiceID).
		Str("transaction_id", transactionID).
		Int("score", m.Score).
		Str("decided_by", string(decidedBy)).
		Msg("match confirmed")
	return m, nil
}

// promoteProposed confirms an existing proposed match for the same pair.
func (s *Service) promoteProposed(ctx context.Context, m *model.Match) (*model.Match, error) {
	existing, err := s.st.MatchForPair(ctx, m.InvoiceID, m.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("loading match for pair: %w", err)
	}
	if existing.Status == model.MatchConfirmed {
		return nil, fmt.Errorf("match already confirmed: %w", store.ErrConflict)
	}

	existing.Status = model.MatchConfirmed
	existing.Score = m.Score
	existing.Confidence = m.Confidence
	existing.DecidedBy = m.DecidedBy
	existing.DeciderID = m.DeciderID
	existing.DecidedAt = m.DecidedAt
	if err := s.st.UpdateMatch(ctx, existing); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("confirming match: %w", err)
		}
		return nil, fmt.Errorf("promoting match: %w", err)
	}

	tx, err := s.st.GetTransaction(ctx, m.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("loading transaction: %w", err)
	}
	if err := s.applyConfirm(ctx, existing, tx); err != nil {
		existing.Status = model.MatchRejected
		_ = s.st.UpdateMatch(ctx, existing)
		return nil, err
	}
	return existing, nil
}

// applyConfirm moves the linked records to their matched states.
func (s *Service) applyConfirm(ctx context.Context, m *model.Match, tx *model.Transaction) error {
	tx.Status = model.StatusMatched
	tx.LinkedInvoiceID = m.InvoiceID
	if err := s.st.UpdateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("updating transaction: %w", err)
	}
	// Signal the invoicing collaborator that a payment candidate arrived.
	if err := s.st.UpdateInvoiceStatus(ctx, m.InvoiceID, model.InvoicePaid); err != nil {
		tx.Status = model.StatusPending
		tx.LinkedInvoiceID = ""
		_ = s.st.UpdateTransaction(ctx, tx)
		return fmt.Errorf("updating invoice status: %w", err)
	}
	return nil
}

// ProposeMatch persists a system suggestion as a proposed match. Re-proposing
// the same pair refreshes the score instead of failing.
func (s *Service) ProposeMatch(ctx context.Context, invoiceID, transactionID string, breakdown match.Breakdown) (*model.Match, error) {
	now := s.now()
	m := &model.Match{
		ID:            uuid.NewString(),
		InvoiceID:     invoiceID,
		TransactionID: transactionID,
		Score:         breakdown.Total,
		Confidence:    model.ConfidenceForScore(breakdown.Total),
		Status:        model.MatchProposed,
		DecidedBy:     model.DecidedBySystem,
		CreatedAt:     now,
	}
	err := s.st.SaveMatch(ctx, m)
	if errors.Is(err, store.ErrDuplicate) {
		existing, err := s.st.MatchForPair(ctx, invoiceID, transactionID)
		if err != nil {
			return nil, fmt.Errorf("loading match for pair: %w", err)
		}
		if existing.Status != model.MatchProposed {
			return existing, nil
		}
		existing.Score = m.Score
		existing.Confidence = m.Confidence
		if err := s.st.UpdateMatch(ctx, existing); err != nil {
			return nil, fmt.Errorf("refreshing proposed match: %w", err)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storing proposed match: %w", err)
	}
	return m, nil
}

// Unmatch rejects a match and reverts the linked records: the transaction
// back to pending, the invoice back to its pre-match status.
func (s *Service) Unmatch(ctx context.Context, matchID string) error {
	m, err := s.st.GetMatch(ctx, matchID)
	if err != nil {
		return fmt.Errorf("loading match %s: %w", matchID, err)
	}
	if m.Status == model.MatchRejected {
		return nil // already undone
	}
	wasConfirmed := m.Status == model.MatchConfirmed

	m.Status = model.MatchRejected
	m.DecidedAt = s.now()
	if err := s.st.UpdateMatch(ctx, m); err != nil {
		return fmt.Errorf("rejecting match: %w", err)
	}

	if !wasConfirmed {
		return nil
	}

	tx, err := s.st.GetTransaction(ctx, m.TransactionID)
	if err != nil {
		return fmt.Errorf("loading transaction: %w", err)
	}
	tx.Status = model.StatusPending
	tx.LinkedInvoiceID = ""
	if err := s.st.UpdateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("reverting transaction: %w", err)
	}

	inv, err := s.st.GetInvoice(ctx, m.InvoiceID)
	if err != nil {
		return fmt.Errorf("loading invoice: %w", err)
	}
	if err := s.st.UpdateInvoiceStatus(ctx, inv.ID, s.revertedStatus(inv)); err != nil {
		return fmt.Errorf("reverting invoice status: %w", err)
	}

	s.log.Info().
		Str("match_id", matchID).
		Str("invoice_id", m.InvoiceID).
		Str("transaction_id", m.TransactionID).
		Msg("match undone")
	return nil
}

// revertedStatus recomputes the pre-match status from the due date.
func (s *Service) revertedStatus(inv *model.Invoice) model.InvoiceStatus {
	if !inv.DueDate.IsZero() && inv.DueDate.Before(s.now()) {
		return model.InvoiceOverdue
	}
	return model.InvoicePending
}

// Ignore marks a pending transaction as ignored. Ignoring an ignored
// transaction is a no-op; ignoring a matched one fails, it must be unmatched
// first.
func (s *Service) Ignore(ctx context.Context, transactionID string) error {
	tx, err := s.st.GetTransaction(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("loading transaction %s: %w", transactionID, err)
	}
	switch tx.Status {
	case model.StatusIgnored:
		return nil
	case model.StatusMatched:
		return fmt.Errorf("transaction %s is matched, unmatch first: %w", transactionID, store.ErrConflict)
	}

	tx.Status = model.StatusIgnored
	if err := s.st.UpdateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("ignoring transaction: %w", err)
	}
	return nil
}

// Unignore reverts an ignored transaction to pending. Only legal from the
// ignored state.
func (s *Service) Unignore(ctx context.Context, transactionID string) error {
	tx, err := s.st.GetTransaction(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("loading transaction %s: %w", transactionID, err)
	}
	if tx.Status != model.StatusIgnored {
		return fmt.Errorf("transaction %s is %s, not ignored: %w", transactionID, tx.Status, store.ErrConflict)
	}

	tx.Status = model.StatusPending
	if err := s.st.UpdateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("restoring transaction: %w", err)
	}
	return nil
}
