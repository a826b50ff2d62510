package domain

import "github.com/shopspring/decimal"

func init() {
	// Persisted records and API payloads carry amounts as plain JSON
	// numbers, matching what older revisions of the record format wrote.
	decimal.MarshalJSONWithoutQuotes = true
}

// Ledger is the single source of truth: the complete ordered collection of
// principals and their nested data. Everything else is derived from it.
type Ledger struct {
	Principals []Principal `json:"principals"`
}

// NewLedger returns an empty ledger.
func NewLedger() Ledger {
	return Ledger{Principals: []Principal{}}
}

// Find returns a pointer into the ledger's principal slice, or nil when the
// id is unknown. Callers that hold a snapshot must not mutate through it.
func (l Ledger) Find(id string) *Principal {
	for i := range l.Principals {
		if l.Principals[i].ID == id {
			return &l.Principals[i]
		}
	}
	return nil
}

// Clone deep-copies the ledger so a mutation never reaches into a snapshot
// already published to observers.
func (l Ledger) Clone() Ledger {
	c := Ledger{Principals: make([]Principal, len(l.Principals))}
	for i, p := range l.Principals {
		c.Principals[i] = p.clone()
	}
	return c
}

// Aggregates are the ledger-wide derived totals plus a per-principal
// breakdown. They are recomputed in full on every mutation and never stored
// as ground truth.
type Aggregates struct {
	TotalGeneral      decimal.Decimal   `json:"totalGeneral"`
	TotalToPrincipals decimal.Decimal   `json:"totalToPrincipals"`
	OperatorEarnings  decimal.Decimal   `json:"operatorEarnings"`
	EmployeeEarnings  decimal.Decimal   `json:"employeeEarnings"`
	Principals        []PrincipalTotals `json:"principals"`
}

// PrincipalTotals is the derived view of a single principal.
//
// PrincipalShare may be negative when percentage edits pushed the combined
// cut past 100%; that is reported as-is, never clamped.
type PrincipalTotals struct {
	PrincipalID    string           `json:"principalId"`
	GrossTotal     decimal.Decimal  `json:"grossTotal"`
	OperatorShare  decimal.Decimal  `json:"operatorShare"`
	EmployeeShare  decimal.Decimal  `json:"employeeShare"`
	PrincipalShare decimal.Decimal  `json:"principalShare"`
	RemainingOwed  decimal.Decimal  `json:"remainingOwed"`
	PerEmployee    []EmployeeTotals `json:"perEmployee"`
}

// EmployeeTotals is one employee's earned cut within a principal's pool.
type EmployeeTotals struct {
	EmployeeID string          `json:"employeeId"`
	Earned     decimal.Decimal `json:"earned"`
}
