// Package derive turns a ledger into its aggregated totals. It is a pure
// function of the ledger: no state, no side effects, whole-ledger every time.
// Incremental updates are deliberately avoided because a principal edit can
// retroactively change every percentage-derived figure.
package derive

import (
	"github.com/shopspring/decimal"

	"github.com/rmtavares/splitbook/internal/domain"
)

var oneHundred = decimal.NewFromInt(100)

// Compute derives the full set of aggregates for l. For each principal:
//
//	operatorShare  = gross * percentage / 100
//	employeeShare  = gross * Σ employee.percentage / 100
//	principalShare = gross - operatorShare - employeeShare
//
// principalShare is reported even when negative (percentages summing past
// 100% are a configuration fact, not an engine error).
func Compute(l domain.Ledger) domain.Aggregates {
	agg := domain.Aggregates{
		TotalGeneral:      decimal.Zero,
		TotalToPrincipals: decimal.Zero,
		OperatorEarnings:  decimal.Zero,
		EmployeeEarnings:  decimal.Zero,
		Principals:        make([]domain.PrincipalTotals, 0, len(l.Principals)),
	}

	for _, p := range l.Principals {
		pt := computePrincipal(p)
		agg.TotalGeneral = agg.TotalGeneral.Add(pt.GrossTotal)
		agg.TotalToPrincipals = agg.TotalToPrincipals.Add(pt.PrincipalShare)
		agg.OperatorEarnings = agg.OperatorEarnings.Add(pt.OperatorShare)
		agg.EmployeeEarnings = agg.EmployeeEarnings.Add(pt.EmployeeShare)
		agg.Principals = append(agg.Principals, pt)
	}

	return agg
}

func computePrincipal(p domain.Principal) domain.PrincipalTotals {
	gross := p.GrossTotal()
	operator := gross.Mul(p.Percentage).Div(oneHundred)

	perEmployee := make([]domain.EmployeeTotals, 0, len(p.Employees))
	employees := decimal.Zero
	for _, e := range p.Employees {
		earned := gross.Mul(e.Percentage).Div(oneHundred)
		employees = employees.Add(earned)
		perEmployee = append(perEmployee, domain.EmployeeTotals{
			EmployeeID: e.ID,
			Earned:     earned,
		})
	}

	share := gross.Sub(operator).Sub(employees)

	return domain.PrincipalTotals{
		PrincipalID:    p.ID,
		GrossTotal:     gross,
		OperatorShare:  operator,
		EmployeeShare:  employees,
		PrincipalShare: share,
		RemainingOwed:  share.Sub(p.AmountSent),
		PerEmployee:    perEmployee,
	}
}
