// Package match scores bank transactions against outstanding invoices. The
// scoring function is pure and stateless; the engine around it adds candidate
// retrieval, ranking and the bulk sweep.
package match

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ledgerlink-dev/ledgerlink/internal/model"
	"github.com/ledgerlink-dev/ledgerlink/internal/store"
)

// Config holds the scoring tolerances and retrieval bounds. All knobs come
// from ledgerlink.yaml; DefaultConfig matches the shipped defaults.
type Config struct {
	// Absolute amount tolerances, tightest first.
	CentTolerance decimal.Decimal // within this -> 45 points
	NearTolerance decimal.Decimal // within this -> 35 points
	WideTolerance decimal.Decimal // within this -> 20 points
	PercentBand   decimal.Decimal // fraction of invoice total -> 10 points

	// Candidate pre-filter, not scoring: bounds the search space.
	DayWindow     int             // days around the invoice reference date
	FilterPercent decimal.Decimal // fraction of invoice total

	MinScore       int
	MaxSuggestions int
	sweepWorkers   int
}

// DefaultConfig returns the shipped tolerances.
func DefaultConfig() Config {
	return Config{
		CentTolerance:  decimal.NewFromFloat(0.01),
		NearTolerance:  decimal.NewFromFloat(0.50),
		WideTolerance:  decimal.NewFromFloat(2.00),
		PercentBand:    decimal.NewFromFloat(0.05),
		DayWindow:      90,
		FilterPercent:  decimal.NewFromFloat(0.10),
		MinScore:       30,
		MaxSuggestions: 10,
		sweepWorkers:   8,
	}
}

// Criterion point caps.
const (
	amountMax       = 50
	dateMax         = 20
	invoiceNumMax   = 30
	paymentRefBonus = 10
	counterpartyMax = 15
)

// Breakdown is the per-criterion score detail.
type Breakdown struct {
	Amount           int
	Date             int
	InvoiceNumber    int
	PaymentReference int
	Counterparty     int
	Total            int // clamped to [0,100]
}

// Score computes the weighted match score for one invoice/transaction pair.
// Criteria are independent and additive; the total is clamped to [0,100].
func (c Config) Score(inv *model.Invoice, tx *model.Transaction) Breakdown {
	b := Breakdown{
		Amount:           c.scoreAmount(inv, tx),
		Date:             scoreDate(inv, tx),
		InvoiceNumber:    scoreInvoiceNumber(inv, tx),
		PaymentReference: scorePaymentReference(inv, tx),
		Counterparty:     scoreCounterparty(inv, tx),
	}
	total := b.Amount + b.Date + b.InvoiceNumber + b.PaymentReference + b.Counterparty
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}
	b.Total = total
	return b
}

func (c Config) scoreAmount(inv *model.Invoice, tx *model.Transaction) int {
	diff := inv.Total.Sub(tx.Amount.Abs()).Abs()
	switch {
	case diff.IsZero():
		return amountMax
	case diff.LessThanOrEqual(c.CentTolerance):
		return 45
	case diff.LessThanOrEqual(c.NearTolerance):
		return 35
	case diff.LessThanOrEqual(c.WideTolerance):
		return 20
	case diff.LessThanOrEqual(inv.Total.Mul(c.PercentBand)):
		return 10
	default:
		return 0
	}
}

func scoreDate(inv *model.Invoice, tx *model.Transaction) int {
	ref := inv.ReferenceDate()
	if ref.IsZero() {
		return 0
	}
	days := daysApart(ref, tx.ExecutionDate)
	switch {
	case days == 0:
		return dateMax
	case days <= 2:
		return 15
	case days <= 7:
		return 10
	case days <= 14:
		return 5
	default:
		return 0
	}
}

func scoreInvoiceNumber(inv *model.Invoice, tx *model.Transaction) int {
	num := normalize(inv.Number)
	if num == "" {
		return 0
	}
	if strings.Contains(normalize(tx.Description), num) {
		return invoiceNumMax
	}
	return 0
}

// Payment references are machine-generated (structured communications), so
// the test is exact and case-sensitive.
func scorePaymentReference(inv *model.Invoice, tx *model.Transaction) int {
	if inv.PaymentReference == "" {
		return 0
	}
	if strings.Contains(tx.Description, inv.PaymentReference) {
		return paymentRefBonus
	}
	return 0
}

func scoreCounterparty(inv *model.Invoice, tx *model.Transaction) int {
	name := normalize(inv.CounterpartyName)
	if name == "" {
		return 0
	}
	if tx.CounterpartyName != "" {
		switch sim := similarity(name, normalize(tx.CounterpartyName)); {
		case sim >= 0.85:
			return counterpartyMax
		case sim >= 0.70:
			return 8
		default:
			return 0
		}
	}
	if strings.Contains(normalize(tx.Description), name) {
		return counterpartyMax
	}
	return 0
}

func daysApart(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(bd.Sub(ad).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// Suggestion is one candidate transaction for an invoice.
type Suggestion struct {
	Transaction *model.Transaction
	Score       int
	Confidence  model.Confidence
	Breakdown   Breakdown
}

// SuggestOptions narrows a suggestion query. Zero values take the config
// defaults.
type SuggestOptions struct {
	MinScore       int
	MaxSuggestions int
	AccountID      string
}

// Engine computes suggestions over the store.
type Engine struct {
	st  store.Store
	cfg Config
	log zerolog.Logger
}

// NewEngine creates a matching engine.
func NewEngine(st store.Store, cfg Config, log zerolog.Logger) *Engine {
	if cfg.MaxSuggestions == 0 {
		cfg = DefaultConfig()
	}
	return &Engine{st: st, cfg: cfg, log: log}
}

// SuggestForInvoice returns ranked candidates for one invoice. An invoice
// that is not matchable or already has an active match yields an empty list,
// not an error.
func (e *Engine) SuggestForInvoice(ctx context.Context, invoiceID string, opts SuggestOptions) ([]Suggestion, error) {
	inv, err := e.st.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("loading invoice %s: %w", invoiceID, err)
	}
	return e.suggest(ctx, inv, opts)
}

func (e *Engine) suggest(ctx context.Context, inv *model.Invoice, opts SuggestOptions) ([]Suggestion, error) {
	if opts.MinScore == 0 {
		opts.MinScore = e.cfg.MinScore
	}
	if opts.MaxSuggestions == 0 {
		opts.MaxSuggestions = e.cfg.MaxSuggestions
	}

	if !inv.Status.Matchable() {
		return nil, nil
	}
	if _, err := e.st.ActiveMatchForInvoice(ctx, inv.ID); err == nil {
		return nil, nil // already reconciled, idempotent no-op
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("checking active match: %w", err)
	}

	candidates, err := e.st.ListTransactions(ctx, e.candidateFilter(inv, opts.AccountID))
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}

	var out []Suggestion
	for _, tx := range candidates {
		b := e.cfg.Score(inv, tx)
		if b.Total < opts.MinScore {
			continue
		}
		out = append(out, Suggestion{
			Transaction: tx,
			Score:       b.Total,
			Confidence:  model.ConfidenceForScore(b.Total),
			Breakdown:   b,
		})
	}

	// Rank: score desc, then nearer to the reference date, then lower
	// transaction id so fixtures are reproducible.
	ref := inv.ReferenceDate()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		di := daysApart(ref, out[i].Transaction.ExecutionDate)
		dj := daysApart(ref, out[j].Transaction.ExecutionDate)
		if di != dj {
			return di < dj
		}
		return out[i].Transaction.ID < out[j].Transaction.ID
	})

	if len(out) > opts.MaxSuggestions {
		out = out[:opts.MaxSuggestions]
	}
	return out, nil
}

// candidateFilter is the cheap pre-filter bounding the candidate pool: only
// unreconciled expenses near the invoice's reference date and total.
func (e *Engine) candidateFilter(inv *model.Invoice, accountID string) store.TransactionFilter {
	f := store.TransactionFilter{
		AccountID: accountID,
		Status:    model.StatusPending,
		Sign:      -1,
	}
	if ref := inv.ReferenceDate(); !ref.IsZero() {
		f.From = ref.AddDate(0, 0, -e.cfg.DayWindow)
		f.To = ref.AddDate(0, 0, e.cfg.DayWindow)
	}
	if inv.Total.IsPositive() && e.cfg.FilterPercent.IsPositive() {
		band := inv.Total.Mul(e.cfg.FilterPercent)
		f.AmountAbsMin = inv.Total.Sub(band)
		f.AmountAbsMax = inv.Total.Add(band)
	}
	return f
}

// BestMatch returns the single best candidate scoring at least 50, or nil.
func (e *Engine) BestMatch(ctx context.Context, invoiceID string) (*Suggestion, error) {
	suggestions, err := e.SuggestForInvoice(ctx, invoiceID, SuggestOptions{MinScore: 50, MaxSuggestions: 1})
	if err != nil {
		return nil, err
	}
	if len(suggestions) == 0 {
		return nil, nil
	}
	s := suggestions[0]
	return &s, nil
}

// SweepItem pairs an invoice with its best candidate.
type SweepItem struct {
	Invoice    *model.Invoice
	Suggestion Suggestion
}

// SweepResult summarizes a bulk sweep.
type SweepResult struct {
	Considered int
	Items      []SweepItem
}

// AutoMatchable sweeps all open invoices and returns the High-confidence best
// candidate per invoice. Scoring fans out across invoices; the caller owns
// confirmation, which must serialize on the store.
func (e *Engine) AutoMatchable(ctx context.Context) (*SweepResult, error) {
	invoices, err := e.st.ListOpenInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing open invoices: %w", err)
	}

	res := &SweepResult{Considered: len(invoices)}
	items := make([]*SweepItem, len(invoices))

	workers := e.cfg.sweepWorkers
	if workers <= 0 {
		workers = 8
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var firstErr error
	var mu sync.Mutex

	for i, inv := range invoices {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, inv *model.Invoice) {
			defer wg.Done()
			defer func() { <-sem }()

			suggestions, err := e.suggest(ctx, inv, SuggestOptions{MinScore: 90, MaxSuggestions: 1})
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			if len(suggestions) == 0 {
				return
			}
			items[i] = &SweepItem{Invoice: inv, Suggestion: suggestions[0]}
		}(i, inv)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	for _, item := range items {
		if item != nil {
			res.Items = append(res.Items, *item)
		}
	}

	e.log.Info().
		Int("considered", res.Considered).
		Int("auto_matchable", len(res.Items)).
		Msg("sweep complete")
	return res, nil
}
