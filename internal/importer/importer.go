// Package importer coordinates statement ingestion: parse, fingerprint,
// categorize, store. Imports return statistics even on partial failure; only
// a statement with zero usable rows is fatal.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ledgerlink-dev/ledgerlink/internal/fingerprint"
	"github.com/ledgerlink-dev/ledgerlink/internal/model"
	"github.com/ledgerlink-dev/ledgerlink/internal/statement"
	"github.com/ledgerlink-dev/ledgerlink/internal/store"
)

// Options control one import run.
type Options struct {
	Format   string // statement profile name, "" = generic
	Encoding string // "" = auto-detect

	// SkipDuplicates is the default duplicate policy. UpdateExisting instead
	// refreshes the suggested category fields of known transactions; the
	// financial fields are never touched.
	SkipDuplicates bool
	UpdateExisting bool
}

// DefaultOptions returns the standard skip-duplicates policy.
func DefaultOptions() Options {
	return Options{SkipDuplicates: true}
}

// Stats is the outcome of one import.
type Stats struct {
	Total        int
	Imported     int
	Skipped      int
	Updated      int
	Errors       int
	Transactions []*model.Transaction
	Warnings     []statement.Warning
}

// PreviewRow is one sample row for UI display.
type PreviewRow struct {
	Date        time.Time
	Amount      string
	Description string
	Category    string
	IsDuplicate bool
}

// Preview summarizes what an import would do, without persisting.
type Preview struct {
	Total          int
	NewCount       int
	DuplicateCount int
	Rows           []PreviewRow
}

// previewSampleCap bounds the preview row sample.
const previewSampleCap = 20

// Importer drives statement ingestion against the transaction store.
type Importer struct {
	st  store.TransactionStore
	log zerolog.Logger
	now func() time.Time
}

// New creates an importer.
func New(st store.TransactionStore, log zerolog.Logger) *Importer {
	return &Importer{st: st, log: log, now: time.Now}
}

// Import parses raw statement bytes and persists new transactions for the
// account. Per-row dedup/store failures are counted and logged, never fatal.
func (im *Importer) Import(ctx context.Context, accountID string, raw []byte, opts Options) (*Stats, error) {
	if accountID == "" {
		return nil, errors.New("account id is required")
	}

	res, err := im.parse(raw, opts)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Total:    len(res.Transactions),
		Warnings: res.Warnings,
	}
	for _, w := range res.Warnings {
		im.log.Warn().Int("line", w.Line).Str("reason", w.Reason).Msg("statement row rejected")
	}

	for _, cand := range res.Transactions {
		outcome, tx, err := im.ingest(ctx, accountID, cand, opts)
		if err != nil {
			stats.Errors++
			im.log.Warn().Err(err).Str("description", cand.Description).Msg("row not imported")
			continue
		}
		switch outcome {
		case ingested:
			stats.Imported++
			stats.Transactions = append(stats.Transactions, tx)
		case updated:
			stats.Updated++
		case skipped:
			stats.Skipped++
		}
	}

	im.log.Info().
		Str("account_id", accountID).
		Int("total", stats.Total).
		Int("imported", stats.Imported).
		Int("skipped", stats.Skipped).
		Int("updated", stats.Updated).
		Int("errors", stats.Errors).
		Msg("statement imported")
	return stats, nil
}

type outcome int

const (
	ingested outcome = iota
	updated
	skipped
)

func (im *Importer) ingest(ctx context.Context, accountID string, cand model.CandidateTransaction, opts Options) (outcome, *model.Transaction, error) {
	fp := fingerprint.ForCandidate(cand)

	existing, err := im.st.FindByFingerprint(ctx, accountID, fp)
	switch {
	case err == nil:
		if !opts.UpdateExisting {
			if !opts.SkipDuplicates {
				// Strict mode: a re-imported row is an error, not a skip.
				return 0, nil, fmt.Errorf("transaction already imported: %w", store.ErrConflict)
			}
			return skipped, nil, nil
		}
		existing.SuggestedCategory = cand.Category
		existing.CategoryConfidence = cand.CategoryConfidence
		if err := im.st.UpdateTransaction(ctx, existing); err != nil {
			return 0, nil, fmt.Errorf("refreshing categories: %w", err)
		}
		return updated, existing, nil
	case !errors.Is(err, store.ErrNotFound):
		return 0, nil, fmt.Errorf("checking fingerprint: %w", err)
	}

	tx := &model.Transaction{
		ID:                  uuid.NewString(),
		AccountID:           accountID,
		Fingerprint:         fp,
		ExecutionDate:       cand.ExecutionDate,
		ValueDate:           cand.ValueDate,
		Amount:              cand.Amount,
		Currency:            cand.Currency,
		Description:         cand.Description,
		CounterpartyName:    cand.CounterpartyName,
		CounterpartyAccount: cand.CounterpartyAccount,
		Status:              model.StatusPending,
		SuggestedCategory:   cand.Category,
		CategoryConfidence:  cand.CategoryConfidence,
		CreatedAt:           im.now(),
	}
	if err := im.st.SaveTransaction(ctx, tx); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Lost a race with a concurrent import of the same statement.
			return skipped, nil, nil
		}
		return 0, nil, fmt.Errorf("storing transaction: %w", err)
	}
	return ingested, tx, nil
}

// PreviewStatement parses and dedup-checks without persisting anything.
func (im *Importer) PreviewStatement(ctx context.Context, accountID string, raw []byte, opts Options) (*Preview, error) {
	res, err := im.parse(raw, opts)
	if err != nil {
		return nil, err
	}

	p := &Preview{Total: len(res.Transactions)}
	for _, cand := range res.Transactions {
		fp := fingerprint.ForCandidate(cand)
		_, err := im.st.FindByFingerprint(ctx, accountID, fp)
		isDup := err == nil
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("checking fingerprint: %w", err)
		}
		if isDup {
			p.DuplicateCount++
		} else {
			p.NewCount++
		}
		if len(p.Rows) < previewSampleCap {
			p.Rows = append(p.Rows, PreviewRow{
				Date:        cand.ExecutionDate,
				Amount:      cand.Amount.StringFixed(2),
				Description: cand.Description,
				Category:    cand.Category,
				IsDuplicate: isDup,
			})
		}
	}
	return p, nil
}

func (im *Importer) parse(raw []byte, opts Options) (*statement.Result, error) {
	profile, err := statement.ProfileByName(opts.Format)
	if err != nil {
		return nil, err
	}
	return statement.NewParser(profile).Parse(raw, opts.Encoding)
}
