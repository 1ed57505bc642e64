package statement

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustProfile(t *testing.T, name string) Profile {
	t.Helper()
	p, err := ProfileByName(name)
	require.NoError(t, err)
	return p
}

func TestParse_GenericFixture(t *testing.T) {
	raw, err := os.ReadFile("testdata/generic_statement.csv")
	require.NoError(t, err)

	p := NewParser(mustProfile(t, "generic"))
	res, err := p.Parse(raw, "")
	require.NoError(t, err)

	// 12 data rows, 2 malformed: partial success, no fatal error.
	assert.Len(t, res.Transactions, 10)
	assert.Len(t, res.Warnings, 2)

	first := res.Transactions[0]
	assert.Equal(t, 5, first.ExecutionDate.Day())
	assert.Equal(t, time.March, first.ExecutionDate.Month())
	assert.Equal(t, 2024, first.ExecutionDate.Year())
	assert.Equal(t, "-49.00", first.Amount.StringFixed(2))
	assert.Equal(t, "EUR", first.Currency)
	assert.Equal(t, "CLOUDHOST BV", first.CounterpartyName)
	assert.Equal(t, "BE71096123456769", first.CounterpartyAccount)
}

func TestParse_QuotedFieldWithDelimiter(t *testing.T) {
	raw, err := os.ReadFile("testdata/generic_statement.csv")
	require.NoError(t, err)

	p := NewParser(mustProfile(t, "generic"))
	res, err := p.Parse(raw, "")
	require.NoError(t, err)

	acme := res.Transactions[2]
	assert.Equal(t, "Betaling factuur F-2024-031; met dank", acme.Description)
	assert.Equal(t, "3500.00", acme.Amount.StringFixed(2))
	assert.True(t, acme.Amount.IsPositive())
}

func TestParse_ISODateFallback(t *testing.T) {
	raw, err := os.ReadFile("testdata/generic_statement.csv")
	require.NoError(t, err)

	p := NewParser(mustProfile(t, "generic"))
	res, err := p.Parse(raw, "")
	require.NoError(t, err)

	// The ENGIE row uses 2024-03-13 instead of 13/03/2024.
	var found bool
	for _, tx := range res.Transactions {
		if tx.CounterpartyName == "ENGIE" {
			found = true
			assert.Equal(t, 13, tx.ExecutionDate.Day())
			assert.Equal(t, time.March, tx.ExecutionDate.Month())
		}
	}
	assert.True(t, found)
}

func TestParse_EuropeanAmounts(t *testing.T) {
	raw, err := os.ReadFile("testdata/generic_statement.csv")
	require.NoError(t, err)

	p := NewParser(mustProfile(t, "generic"))
	res, err := p.Parse(raw, "")
	require.NoError(t, err)

	studio := res.Transactions[7]
	assert.Equal(t, "STUDIO MAES", studio.CounterpartyName)
	assert.Equal(t, "-1234.56", studio.Amount.StringFixed(2))
}

func TestParse_PreambleSkip(t *testing.T) {
	input := "Bank export\nAccount: BE12 3456 7890\n" +
		"Datum;Omschrijving;Bedrag\n" +
		"05/03/2024;coffee;-3,50\n"

	p := NewParser(Profile{Name: "test", SkipLines: 2})
	res, err := p.Parse([]byte(input), "")
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "-3.50", res.Transactions[0].Amount.StringFixed(2))
}

func TestParse_UTF8BOMStripped(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF},
		[]byte("Datum;Omschrijving;Bedrag\n05/03/2024;coffee;-3,50\n")...)

	p := NewParser(mustProfile(t, "generic"))
	res, err := p.Parse(input, "")
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
}

func TestParse_Windows1252Detected(t *testing.T) {
	// 0xE9 is 'é' in Windows-1252 and invalid as a standalone UTF-8 byte.
	input := []byte("Datum;Omschrijving;Bedrag\n05/03/2024;caf\xe9 du parc;-3,50\n")

	p := NewParser(mustProfile(t, "generic"))
	res, err := p.Parse(input, "")
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "café du parc", res.Transactions[0].Description)
}

func TestParse_MissingRequiredColumns(t *testing.T) {
	input := "Datum;Tegenpartij\n05/03/2024;ACME\n"

	p := NewParser(mustProfile(t, "generic"))
	_, err := p.Parse([]byte(input), "")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "missing required columns")
}

func TestParse_AllRowsRejected(t *testing.T) {
	input := "Datum;Omschrijving;Bedrag\nbad;row;one\nworse;row;two\n"

	p := NewParser(mustProfile(t, "generic"))
	_, err := p.Parse([]byte(input), "")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Len(t, perr.Warnings, 2)
}

func TestParse_UnknownFormat(t *testing.T) {
	_, err := ProfileByName("monopoly-bank")
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"-1.234,56", "-1234.56"},
		{"1.234,56", "1234.56"},
		{"3.500,00", "3500"},
		{"-49,00", "-49"},
		{"0,01", "0.01"},
		{"€ -12,50", "-12.5"},
		{"1.000", "1000"},
	}
	for _, c := range cases {
		got, err := ParseAmount(c.in)
		require.NoError(t, err, c.in)
		want, _ := decimal.NewFromString(c.want)
		assert.True(t, got.Equal(want), "%s: got %s want %s", c.in, got, want)
	}

	_, err := ParseAmount("not a number")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("05/03/2024")
	require.NoError(t, err)
	assert.Equal(t, 5, d.Day())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 2024, d.Year())

	d, err = parseDate("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, 5, d.Day())

	_, err = parseDate("03-05-24 12:00")
	assert.Error(t, err)
}

func TestCategorize_SignScoped(t *testing.T) {
	rules := DefaultRules()

	// "factuur" is an income pattern; a negative amount must not hit it.
	cat, conf, ok := Categorize(rules, dec("1200.00"), "Betaling factuur 2024-001", "ACME")
	require.True(t, ok)
	assert.Equal(t, "client-payment", cat)
	assert.Equal(t, 70, conf)

	cat, _, ok = Categorize(rules, dec("-1200.00"), "Betaling factuur 2024-001", "STUDIO MAES")
	if ok {
		assert.NotEqual(t, "client-payment", cat)
	}
}

func TestCategorize_ExpenseKeywords(t *testing.T) {
	rules := DefaultRules()

	cat, conf, ok := Categorize(rules, dec("-4.00"), "GITHUB PRO subscription", "")
	require.True(t, ok)
	assert.Equal(t, "software", cat)
	assert.Equal(t, 85, conf)

	// Counterparty text participates too.
	cat, _, ok = Categorize(rules, dec("-86.45"), "kaart 4321", "COLRUYT 1402")
	require.True(t, ok)
	assert.Equal(t, "groceries", cat)
}

func TestCategorize_NoMatchIsNotAnError(t *testing.T) {
	_, _, ok := Categorize(DefaultRules(), dec("-12.00"), "misc transfer", "")
	assert.False(t, ok)
}

func TestParse_FixtureCategories(t *testing.T) {
	raw, err := os.ReadFile("testdata/generic_statement.csv")
	require.NoError(t, err)

	p := NewParser(mustProfile(t, "generic"))
	res, err := p.Parse(raw, "")
	require.NoError(t, err)

	byCounterparty := map[string]string{}
	for _, tx := range res.Transactions {
		byCounterparty[tx.CounterpartyName] = tx.Category
	}
	assert.Equal(t, "software", byCounterparty["GITHUB INC"])
	assert.Equal(t, "telecom", byCounterparty["PROXIMUS NV"])
	assert.Equal(t, "client-payment", byCounterparty["ACME CONSULTING"])
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
