package fingerprint

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ledgerlink-dev/ledgerlink/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCompute_Deterministic(t *testing.T) {
	a := Compute(date(2024, 3, 5), dec("-1234.56"), "ACME invoice 2024-001")
	b := Compute(date(2024, 3, 5), dec("-1234.56"), "ACME invoice 2024-001")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestCompute_TimeOfDayIgnored(t *testing.T) {
	morning := time.Date(2024, 3, 5, 8, 15, 0, 0, time.UTC)
	evening := time.Date(2024, 3, 5, 22, 40, 3, 0, time.UTC)
	assert.Equal(t,
		Compute(morning, dec("-10.00"), "coffee"),
		Compute(evening, dec("-10.00"), "coffee"))
}

func TestCompute_DescriptionNormalized(t *testing.T) {
	assert.Equal(t,
		Compute(date(2024, 3, 5), dec("-10.00"), "  Coffee Bar  "),
		Compute(date(2024, 3, 5), dec("-10.00"), "coffee bar"))
}

func TestCompute_ChangingAnyFieldChangesFingerprint(t *testing.T) {
	base := Compute(date(2024, 3, 5), dec("-10.00"), "coffee")

	assert.NotEqual(t, base, Compute(date(2024, 3, 6), dec("-10.00"), "coffee"))
	assert.NotEqual(t, base, Compute(date(2024, 3, 5), dec("-10.01"), "coffee"))
	assert.NotEqual(t, base, Compute(date(2024, 3, 5), dec("-10.00"), "tea"))
}

func TestCompute_AmountScaleNormalized(t *testing.T) {
	// "-10" and "-10.00" are the same logical amount.
	assert.Equal(t,
		Compute(date(2024, 3, 5), dec("-10"), "coffee"),
		Compute(date(2024, 3, 5), dec("-10.00"), "coffee"))
}

func TestForCandidate(t *testing.T) {
	c := model.CandidateTransaction{
		ExecutionDate: date(2024, 3, 5),
		Amount:        dec("-1234.56"),
		Description:   "ACME invoice 2024-001",
	}
	assert.Equal(t, Compute(c.ExecutionDate, c.Amount, c.Description), ForCandidate(c))
}
