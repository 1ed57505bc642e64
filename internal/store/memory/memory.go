// Package memory is an in-memory Store used by tests and preview flows. It
// mirrors the sqlite semantics, including duplicate and conflict arbitration.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ledgerlink-dev/ledgerlink/internal/model"
	"github.com/ledgerlink-dev/ledgerlink/internal/store"
)

// Store holds everything behind one mutex; fine at test scale.
type Store struct {
	mu           sync.Mutex
	transactions map[string]*model.Transaction
	invoices     map[string]*model.Invoice
	matches      map[string]*model.Match
	fingerprints map[[2]string]string // (accountID, fingerprint) -> transaction ID
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		transactions: make(map[string]*model.Transaction),
		invoices:     make(map[string]*model.Invoice),
		matches:      make(map[string]*model.Match),
		fingerprints: make(map[[2]string]string),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) SaveTransaction(_ context.Context, t *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := [2]string{t.AccountID, t.Fingerprint}
	if _, ok := s.fingerprints[key]; ok {
		return store.ErrDuplicate
	}
	cp := *t
	s.transactions[t.ID] = &cp
	s.fingerprints[key] = t.ID
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) FindByFingerprint(_ context.Context, accountID, fp string) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.fingerprints[[2]string{accountID, fp}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s.transactions[id]
	return &cp, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[t.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *t
	s.transactions[t.ID] = &cp
	return nil
}

func (s *Store) ListTransactions(_ context.Context, f store.TransactionFilter) ([]*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Transaction
	for _, t := range s.transactions {
		if f.Matches(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	// Deterministic order for reproducible suggestion fixtures.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveInvoice(_ context.Context, inv *model.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *inv
	s.invoices[inv.ID] = &cp
	return nil
}

func (s *Store) GetInvoice(_ context.Context, id string) (*model.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s *Store) ListOpenInvoices(_ context.Context) ([]*model.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Invoice
	for _, inv := range s.invoices {
		if inv.Status.Matchable() {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateInvoiceStatus(_ context.Context, id string, status model.InvoiceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok {
		return store.ErrNotFound
	}
	inv.Status = status
	return nil
}

func (s *Store) SaveMatch(_ context.Context, m *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.matches {
		if existing.InvoiceID == m.InvoiceID && existing.TransactionID == m.TransactionID {
			return store.ErrDuplicate
		}
	}
	if m.Status == model.MatchConfirmed {
		if err := s.checkConfirmable(m); err != nil {
			return err
		}
	}
	cp := *m
	s.matches[m.ID] = &cp
	return nil
}

func (s *Store) UpdateMatch(_ context.Context, m *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.matches[m.ID]; !ok {
		return store.ErrNotFound
	}
	if m.Status == model.MatchConfirmed {
		if err := s.checkConfirmable(m); err != nil {
			return err
		}
	}
	cp := *m
	s.matches[m.ID] = &cp
	return nil
}

// checkConfirmable enforces at-most-one confirmed match per invoice and per
// transaction, ignoring the record being written itself.
func (s *Store) checkConfirmable(m *model.Match) error {
	for _, existing := range s.matches {
		if existing.ID == m.ID || existing.Status != model.MatchConfirmed {
			continue
		}
		if existing.InvoiceID == m.InvoiceID || existing.TransactionID == m.TransactionID {
			return store.ErrConflict
		}
	}
	return nil
}

func (s *Store) GetMatch(_ context.Context, id string) (*model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *Store) MatchForPair(_ context.Context, invoiceID, transactionID string) (*model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.matches {
		if m.InvoiceID == invoiceID && m.TransactionID == transactionID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ActiveMatchForInvoice(_ context.Context, invoiceID string) (*model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.matches {
		if m.InvoiceID == invoiceID && m.Status == model.MatchConfirmed {
			cp := *m
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ActiveMatchForTransaction(_ context.Context, transactionID string) (*model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.matches {
		if m.TransactionID == transactionID && m.Status == model.MatchConfirmed {
			cp := *m
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}
