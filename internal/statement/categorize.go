package statement

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Direction scopes a category rule to one transaction sign.
type Direction int

const (
	Expense Direction = iota // applies to negative amounts
	Income                   // applies to positive amounts
)

// CategoryRule suggests a category when one of its keywords appears in the
// transaction text. Rules are tried in order; the first hit wins.
type CategoryRule struct {
	Category   string
	Direction  Direction
	Keywords   []string
	Confidence int // 0-100
}

// DefaultRules is the curated keyword table. Merchant-specific keywords carry
// higher confidence than generic terms.
func DefaultRules() []CategoryRule {
	return []CategoryRule{
		// Income patterns.
		{Category: "client-payment", Direction: Income, Confidence: 70,
			Keywords: []string{"invoice", "factuur", "facture", "payment", "betaling"}},
		{Category: "salary", Direction: Income, Confidence: 80,
			Keywords: []string{"salary", "loon", "wedde", "payroll"}},
		{Category: "interest", Direction: Income, Confidence: 80,
			Keywords: []string{"interest", "intrest", "creditrente"}},

		// Expense patterns.
		{Category: "rent", Direction: Expense, Confidence: 80,
			Keywords: []string{"rent ", "huur", "loyer"}},
		{Category: "utilities", Direction: Expense, Confidence: 85,
			Keywords: []string{"engie", "eneco", "luminus", "electricity", "elektriciteit", "gas en licht"}},
		{Category: "telecom", Direction: Expense, Confidence: 85,
			Keywords: []string{"proximus", "telenet", "orange", "vodafone", "kpn"}},
		{Category: "insurance", Direction: Expense, Confidence: 80,
			Keywords: []string{"verzekering", "insurance", "axa", "allianz", "ethias"}},
		{Category: "software", Direction: Expense, Confidence: 85,
			Keywords: []string{"github", "google cloud", "aws", "microsoft", "adobe", "slack", "atlassian"}},
		{Category: "groceries", Direction: Expense, Confidence: 85,
			Keywords: []string{"albert heijn", "colruyt", "delhaize", "carrefour", "lidl", "aldi", "jumbo"}},
		{Category: "fuel", Direction: Expense, Confidence: 80,
			Keywords: []string{"shell", "esso", "total energies", "q8", "lukoil"}},
		{Category: "dining", Direction: Expense, Confidence: 75,
			Keywords: []string{"restaurant", "uber eats", "deliveroo", "takeaway"}},
		{Category: "bank-costs", Direction: Expense, Confidence: 70,
			Keywords: []string{"beheerskosten", "bank fee", "dossierkosten", "kaartbijdrage"}},
		{Category: "taxes", Direction: Expense, Confidence: 70,
			Keywords: []string{"btw", "vat ", "belastingen", "voorafbetaling"}},
	}
}

// Categorize matches the transaction text against the rule table, scoped by
// sign. Returning no category is the common case, not an error.
func Categorize(rules []CategoryRule, amount decimal.Decimal, description, counterparty string) (string, int, bool) {
	if amount.IsZero() {
		return "", 0, false
	}

	dir := Expense
	if amount.IsPositive() {
		dir = Income
	}

	text := strings.ToLower(description + " " + counterparty)
	for _, rule := range rules {
		if rule.Direction != dir {
			continue
		}
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				return rule.Category, rule.Confidence, true
			}
		}
	}
	return "", 0, false
}
