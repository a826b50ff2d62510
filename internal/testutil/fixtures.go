package testutil

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rmtavares/splitbook/internal/domain"
)

// Dec parses a decimal literal, failing the test on bad input.
func Dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

// LedgerFixture builds a small ledger with one fully configured principal:
// 10% operator cut, one employee at 15%, a single 1000 cash entry.
func LedgerFixture(t *testing.T) domain.Ledger {
	t.Helper()

	p, err := domain.NewPrincipal("Itaú", Dec(t, "10"), []domain.EmployeeInput{
		{Name: "Lipe", Percentage: Dec(t, "15")},
	})
	if err != nil {
		t.Fatalf("build principal fixture: %v", err)
	}
	p.Values = append(p.Values, Dec(t, "1000"))

	l := domain.NewLedger()
	l.Principals = append(l.Principals, p)
	return l
}
