// Package sqlite is the persistent Store implementation. The schema carries
// the uniqueness rules the engine relies on: (account_id, fingerprint) for
// dedup and partial-unique indexes that make the database the arbiter for
// concurrent match confirmations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/ledgerlink-dev/ledgerlink/internal/model"
	"github.com/ledgerlink-dev/ledgerlink/internal/store"
)

const (
	dayFormat = "2006-01-02"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	execution_date TEXT NOT NULL,
	value_date TEXT,
	amount TEXT NOT NULL,
	currency TEXT,
	description TEXT NOT NULL,
	counterparty_name TEXT,
	counterparty_account TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	linked_invoice_id TEXT,
	suggested_category TEXT,
	category_confidence INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	UNIQUE (account_id, fingerprint)
);

CREATE TABLE IF NOT EXISTS invoices (
	id TEXT PRIMARY KEY,
	number TEXT,
	payment_reference TEXT,
	counterparty_name TEXT,
	total TEXT NOT NULL,
	currency TEXT,
	issue_date TEXT,
	due_date TEXT,
	status TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS matches (
	id TEXT PRIMARY KEY,
	invoice_id TEXT NOT NULL,
	transaction_id TEXT NOT NULL,
	score INTEGER NOT NULL,
	confidence TEXT NOT NULL,
	status TEXT NOT NULL,
	decided_by TEXT NOT NULL,
	decider_id TEXT,
	notes TEXT,
	decided_at TEXT,
	created_at TEXT NOT NULL,
	UNIQUE (invoice_id, transaction_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_active_invoice
	ON matches (invoice_id) WHERE status = 'confirmed';
CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_active_transaction
	ON matches (transaction_id) WHERE status = 'confirmed';
`

// Store is a sqlite-backed store.Store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveTransaction(ctx context.Context, t *model.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
		(id, account_id, fingerprint, execution_date, value_date, amount,
		 currency, description, counterparty_name, counterparty_account,
		 status, linked_invoice_id, suggested_category, category_confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.Fingerprint,
		t.ExecutionDate.Format(dayFormat), day(t.ValueDate), t.Amount.String(),
		t.Currency, t.Description, t.CounterpartyName, t.CounterpartyAccount,
		string(t.Status), t.LinkedInvoiceID, t.SuggestedCategory, t.CategoryConfidence,
		t.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return wrapConstraint(err, "saving transaction")
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	row := s.db.QueryRowContext(ctx, txSelect+` WHERE id = ?`, id)
	return scanTransaction(row)
}

func (s *Store) FindByFingerprint(ctx context.Context, accountID, fp string) (*model.Transaction, error) {
	row := s.db.QueryRowContext(ctx, txSelect+` WHERE account_id = ? AND fingerprint = ?`, accountID, fp)
	return scanTransaction(row)
}

func (s *Store) UpdateTransaction(ctx context.Context, t *model.Transaction) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET
			status = ?, linked_invoice_id = ?, suggested_category = ?,
			category_confidence = ?
		WHERE id = ?`,
		string(t.Status), t.LinkedInvoiceID, t.SuggestedCategory,
		t.CategoryConfidence, t.ID)
	if err != nil {
		return fmt.Errorf("updating transaction: %w", err)
	}
	return requireRow(res)
}

func (s *Store) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]*model.Transaction, error) {
	// Sign and amount-band filtering happen in Go: amounts are stored as
	// decimal strings, which do not compare numerically in SQL.
	query := txSelect + ` WHERE 1=1`
	var args []any
	if f.AccountID != "" {
		query += ` AND account_id = ?`
		args = append(args, f.AccountID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if !f.From.IsZero() {
		query += ` AND execution_date >= ?`
		args = append(args, f.From.Format(dayFormat))
	}
	if !f.To.IsZero() {
		query += ` AND execution_date <= ?`
		args = append(args, f.To.Format(dayFormat))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return out, nil
}

func (s *Store) SaveInvoice(ctx context.Context, inv *model.Invoice) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO invoices
		(id, number, payment_reference, counterparty_name, total, currency,
		 issue_date, due_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Number, inv.PaymentReference, inv.CounterpartyName,
		inv.Total.String(), inv.Currency, day(inv.IssueDate), day(inv.DueDate),
		string(inv.Status))
	if err != nil {
		return fmt.Errorf("saving invoice: %w", err)
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	row := s.db.QueryRowContext(ctx, invSelect+` WHERE id = ?`, id)
	return scanInvoice(row)
}

func (s *Store) ListOpenInvoices(ctx context.Context) ([]*model.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, invSelect+` WHERE status IN ('pending', 'overdue') ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing open invoices: %w", err)
	}
	defer rows.Close()

	var out []*model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing open invoices: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateInvoiceStatus(ctx context.Context, id string, status model.InvoiceStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE invoices SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("updating invoice status: %w", err)
	}
	return requireRow(res)
}

func (s *Store) SaveMatch(ctx context.Context, m *model.Match) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matches
		(id, invoice_id, transaction_id, score, confidence, status,
		 decided_by, decider_id, notes, decided_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.InvoiceID, m.TransactionID, m.Score, string(m.Confidence),
		string(m.Status), string(m.DecidedBy), m.DeciderID, m.Notes,
		stamp(m.DecidedAt), m.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return wrapConstraint(err, "saving match")
	}
	return nil
}

func (s *Store) UpdateMatch(ctx context.Context, m *model.Match) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE matches SET
			score = ?, confidence = ?, status = ?, decided_by = ?,
			decider_id = ?, notes = ?, decided_at = ?
		WHERE id = ?`,
		m.Score, string(m.Confidence), string(m.Status), string(m.DecidedBy),
		m.DeciderID, m.Notes, stamp(m.DecidedAt), m.ID)
	if err != nil {
		return wrapConstraint(err, "updating match")
	}
	return requireRow(res)
}

func (s *Store) GetMatch(ctx context.Context, id string) (*model.Match, error) {
	row := s.db.QueryRowContext(ctx, matchSelect+` WHERE id = ?`, id)
	return scanMatch(row)
}

func (s *Store) MatchForPair(ctx context.Context, invoiceID, transactionID string) (*model.Match, error) {
	row := s.db.QueryRowContext(ctx, matchSelect+` WHERE invoice_id = ? AND transaction_id = ?`, invoiceID, transactionID)
	return scanMatch(row)
}

func (s *Store) ActiveMatchForInvoice(ctx context.Context, invoiceID string) (*model.Match, error) {
	row := s.db.QueryRowContext(ctx, matchSelect+` WHERE invoice_id = ? AND status = 'confirmed'`, invoiceID)
	return scanMatch(row)
}

func (s *Store) ActiveMatchForTransaction(ctx context.Context, transactionID string) (*model.Match, error) {
	row := s.db.QueryRowContext(ctx, matchSelect+` WHERE transaction_id = ? AND status = 'confirmed'`, transactionID)
	return scanMatch(row)
}

const txSelect = `
	SELECT id, account_id, fingerprint, execution_date, value_date, amount,
	       currency, description, counterparty_name, counterparty_account,
	       status, linked_invoice_id, suggested_category, category_confidence,
	       created_at
	FROM transactions`

const invSelect = `
	SELECT id, number, payment_reference, counterparty_name, total, currency,
	       issue_date, due_date, status
	FROM invoices`

const matchSelect = `
	SELECT id, invoice_id, transaction_id, score, confidence, status,
	       decided_by, decider_id, notes, decided_at, created_at
	FROM matches`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*model.Transaction, error) {
	var t model.Transaction
	var execDate, valueDate, amount, createdAt, status string
	err := row.Scan(&t.ID, &t.AccountID, &t.Fingerprint, &execDate, &valueDate,
		&amount, &t.Currency, &t.Description, &t.CounterpartyName,
		&t.CounterpartyAccount, &status, &t.LinkedInvoiceID,
		&t.SuggestedCategory, &t.CategoryConfidence, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning transaction: %w", err)
	}

	t.Status = model.ReconciliationStatus(status)
	if t.ExecutionDate, err = time.Parse(dayFormat, execDate); err != nil {
		return nil, fmt.Errorf("scanning transaction date: %w", err)
	}
	if valueDate != "" {
		if t.ValueDate, err = time.Parse(dayFormat, valueDate); err != nil {
			return nil, fmt.Errorf("scanning value date: %w", err)
		}
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("scanning amount: %w", err)
	}
	if t.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("scanning created_at: %w", err)
	}
	return &t, nil
}

func scanInvoice(row scanner) (*model.Invoice, error) {
	var inv model.Invoice
	var total, issue, due, status string
	err := row.Scan(&inv.ID, &inv.Number, &inv.PaymentReference,
		&inv.CounterpartyName, &total, &inv.Currency, &issue, &due, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning invoice: %w", err)
	}

	inv.Status = model.InvoiceStatus(status)
	if inv.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("scanning invoice total: %w", err)
	}
	if issue != "" {
		if inv.IssueDate, err = time.Parse(dayFormat, issue); err != nil {
			return nil, fmt.Errorf("scanning issue date: %w", err)
		}
	}
	if due != "" {
		if inv.DueDate, err = time.Parse(dayFormat, due); err != nil {
			return nil, fmt.Errorf("scanning due date: %w", err)
		}
	}
	return &inv, nil
}

func scanMatch(row scanner) (*model.Match, error) {
	var m model.Match
	var confidence, status, decidedBy, decidedAt, createdAt string
	err := row.Scan(&m.ID, &m.InvoiceID, &m.TransactionID, &m.Score,
		&confidence, &status, &decidedBy, &m.DeciderID, &m.Notes,
		&decidedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning match: %w", err)
	}

	m.Confidence = model.Confidence(confidence)
	m.Status = model.MatchStatus(status)
	m.DecidedBy = model.DecidedBy(decidedBy)
	if decidedAt != "" {
		if m.DecidedAt, err = time.Parse(time.RFC3339, decidedAt); err != nil {
			return nil, fmt.Errorf("scanning decided_at: %w", err)
		}
	}
	if m.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("scanning created_at: %w", err)
	}
	return &m, nil
}

// wrapConstraint maps sqlite unique violations onto the store error taxonomy.
// SQLite reports violations by column list, not index name: the
// (invoice_id, transaction_id) pair constraint names both columns, the partial
// "active" indexes name exactly one. A single-column violation is a lost
// confirmation race; everything else is a duplicate record.
func wrapConstraint(err error, op string) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique {
		msg := serr.Error()
		invoiceCol := strings.Contains(msg, "matches.invoice_id")
		transactionCol := strings.Contains(msg, "matches.transaction_id")
		if invoiceCol != transactionCol {
			return store.ErrConflict
		}
		return store.ErrDuplicate
	}
	return fmt.Errorf("%s: %w", op, err)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dayFormat)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
