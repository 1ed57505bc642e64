// Package statement parses delimited bank statement exports into candidate
// transactions. It tolerates per-bank header spellings, European locale
// conventions and ragged rows; individual bad rows become warnings, and a
// parse fails only when no row is usable.
package statement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerlink-dev/ledgerlink/internal/model"
)

// Profile describes one bank's export dialect.
type Profile struct {
	Name      string
	SkipLines int  // fixed-size metadata preamble before the header row
	Delimiter rune // zero means ';'
}

// Built-in profiles. "generic" covers semicolon-delimited European exports
// with no preamble; bank-specific profiles only differ in preamble size.
var builtinProfiles = map[string]Profile{
	"generic": {Name: "generic"},
	"kbc":     {Name: "kbc"},
	"belfius": {Name: "belfius", SkipLines: 12},
	"ing":     {Name: "ing", SkipLines: 5},
}

// ProfileByName returns a built-in profile, or the generic one for "".
func ProfileByName(name string) (Profile, error) {
	if name == "" {
		return builtinProfiles["generic"], nil
	}
	p, ok := builtinProfiles[strings.ToLower(name)]
	if !ok {
		return Profile{}, fmt.Errorf("unknown statement format %q", name)
	}
	return p, nil
}

// Warning records a row that was rejected without failing the parse.
type Warning struct {
	Line   int
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Reason)
}

// ParseError means the statement produced zero usable rows.
type ParseError struct {
	Reason   string
	Warnings []Warning
}

func (e *ParseError) Error() string {
	if len(e.Warnings) == 0 {
		return "parsing statement: " + e.Reason
	}
	return fmt.Sprintf("parsing statement: %s (%d rejected rows)", e.Reason, len(e.Warnings))
}

// Result holds the parsed rows plus per-row warnings.
type Result struct {
	Transactions []model.CandidateTransaction
	Warnings     []Warning
}

// Ordered header spellings per logical column, across supported banks.
// The first alias present in the observed header wins.
var (
	dateAliases                = []string{"date", "datum", "boekingsdatum", "uitvoeringsdatum", "transaction date", "execution date"}
	valueAliases               = []string{"value date", "valutadatum", "valutadag"}
	amountAliases              = []string{"amount", "bedrag", "montant"}
	currencyAliases            = []string{"currency", "munt", "devise", "ccy"}
	counterpartyNameAliases    = []string{"counterparty", "naam tegenpartij", "tegenpartij", "counterparty name", "naam"}
	counterpartyAccountAliases = []string{"counterparty account", "rekening tegenpartij", "tegenrekening", "counterparty iban", "iban"}
	descriptionAliases         = []string{"description", "omschrijving", "mededeling", "communication", "vrije mededeling", "details"}
)

const (
	primaryDateFormat = "02/01/2006" // day/month/year
	isoDateFormat     = "2006-01-02"
)

// Parser turns raw statement bytes into candidate transactions.
type Parser struct {
	profile Profile
	rules   []CategoryRule
}

// NewParser creates a parser for a profile with the curated category rules.
func NewParser(profile Profile) *Parser {
	return &Parser{profile: profile, rules: DefaultRules()}
}

type columns struct {
	date, value, amount, currency, cpName, cpAccount, description int
}

// Parse decodes, splits and converts a raw export. It returns a *ParseError
// only when no row parses; partial success is the expected outcome.
func (p *Parser) Parse(raw []byte, encoding string) (*Result, error) {
	text, err := decode(raw, encoding)
	if err != nil {
		return nil, &ParseError{Reason: err.Error()}
	}

	lines := splitLines(text)
	if len(lines) <= p.profile.SkipLines {
		return nil, &ParseError{Reason: "no header row after preamble"}
	}
	lines = lines[p.profile.SkipLines:]

	delim := p.profile.Delimiter
	if delim == 0 {
		delim = ';'
	}

	cr := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	cr.Comma = delim
	cr.FieldsPerRecord = -1 // ragged rows are tolerated
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("reading header: %v", err)}
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, &ParseError{Reason: err.Error()}
	}

	res := &Result{}
	line := p.profile.SkipLines + 1 // header line number in the original file
	for {
		line++
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Warnings = append(res.Warnings, Warning{Line: line, Reason: err.Error()})
			continue
		}
		if isBlank(rec) {
			continue
		}

		cand, err := p.parseRow(rec, cols)
		if err != nil {
			res.Warnings = append(res.Warnings, Warning{Line: line, Reason: err.Error()})
			continue
		}
		res.Transactions = append(res.Transactions, cand)
	}

	if len(res.Transactions) == 0 {
		return nil, &ParseError{Reason: "no usable rows", Warnings: res.Warnings}
	}
	return res, nil
}

func (p *Parser) parseRow(rec []string, cols columns) (model.CandidateTransaction, error) {
	date, err := parseDate(field(rec, cols.date))
	if err != nil {
		return model.CandidateTransaction{}, err
	}

	amount, err := ParseAmount(field(rec, cols.amount))
	if err != nil {
		return model.CandidateTransaction{}, err
	}

	cand := model.CandidateTransaction{
		ExecutionDate:       date,
		Amount:              amount,
		Currency:            strings.TrimSpace(field(rec, cols.currency)),
		Description:         strings.TrimSpace(field(rec, cols.description)),
		CounterpartyName:    strings.TrimSpace(field(rec, cols.cpName)),
		CounterpartyAccount: strings.TrimSpace(field(rec, cols.cpAccount)),
	}

	if v := field(rec, cols.value); v != "" {
		// A bad value date is not worth rejecting the row over.
		if vd, err := parseDate(v); err == nil {
			cand.ValueDate = vd
		}
	}

	if cat, conf, ok := Categorize(p.rules, cand.Amount, cand.Description, cand.CounterpartyName); ok {
		cand.Category = cat
		cand.CategoryConfidence = conf
	}

	return cand, nil
}

func resolveColumns(header []string) (columns, error) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
	}

	find := func(aliases []string) int {
		for _, a := range aliases {
			for i, h := range normalized {
				if h == a {
					return i
				}
			}
		}
		return -1
	}

	cols := columns{
		date:        find(dateAliases),
		value:       find(valueAliases),
		amount:      find(amountAliases),
		currency:    find(currencyAliases),
		cpName:      find(counterpartyNameAliases),
		cpAccount:   find(counterpartyAccountAliases),
		description: find(descriptionAliases),
	}

	var missing []string
	if cols.date < 0 {
		missing = append(missing, "date")
	}
	if cols.amount < 0 {
		missing = append(missing, "amount")
	}
	if cols.description < 0 {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return columns{}, fmt.Errorf("header is missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// parseDate tries day/month/year first, then the ISO form.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(primaryDateFormat, s); err == nil {
		return d, nil
	}
	if d, err := time.Parse(isoDateFormat, s); err == nil {
		return d, nil
	}
	return time.Time{}, fmt.Errorf("parsing date %q", s)
}

// ParseAmount parses a European-convention number: '.' groups thousands,
// ',' is the decimal separator. Currency symbols and spacing are stripped.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	for _, sym := range []string{"€", "£", "$", " ", " "} {
		cleaned = strings.ReplaceAll(cleaned, sym, "")
	}
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q", s)
	}
	return d, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
