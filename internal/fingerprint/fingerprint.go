// Package fingerprint derives content-addressed duplicate-detection keys for
// bank transactions. Two exports of the same statement, even from different
// export runs, produce identical fingerprints for identical logical rows.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerlink-dev/ledgerlink/internal/model"
)

const dateFormat = "2006-01-02"

// Compute hashes the canonical tuple (date truncated to day, amount at two
// decimals, lower-cased trimmed description). The result is a 64-char hex
// string. Uniqueness is scoped per account by the store, not here.
func Compute(date time.Time, amount decimal.Decimal, description string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s",
		date.Format(dateFormat),
		amount.StringFixed(2),
		strings.ToLower(strings.TrimSpace(description)))
	return hex.EncodeToString(h.Sum(nil))
}

// ForCandidate fingerprints a parsed statement row.
func ForCandidate(c model.CandidateTransaction) string {
	return Compute(c.ExecutionDate, c.Amount, c.Description)
}
