package domain

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Employee is a sub-agent of a Principal with their own percentage cut.
// It has no identity outside the Principal that owns it.
type Employee struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
}

// EmployeeInput carries the caller-supplied fields for a new or edited
// employee; the id is assigned here.
type EmployeeInput struct {
	Name       string
	Percentage decimal.Decimal
}

// Principal is a commission-taking party ("boss"): cash routed through the
// operator is attributed to exactly one Principal, who owes the operator
// Percentage of it and owes each Employee their own cut.
type Principal struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Percentage decimal.Decimal   `json:"percentage"`
	Employees  []Employee        `json:"employees"`
	Values     []decimal.Decimal `json:"values"`
	AmountSent decimal.Decimal   `json:"amountSent"`
}

var oneHundred = decimal.NewFromInt(100)

// NewPrincipal builds a Principal with a fresh id, empty cash entries and
// zero amount sent. Employee percentages must be strictly positive.
func NewPrincipal(name string, percentage decimal.Decimal, employees []EmployeeInput) (Principal, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Principal{}, ErrEmptyName
	}
	if percentage.IsNegative() || percentage.GreaterThan(oneHundred) {
		return Principal{}, ErrInvalidPercentage
	}

	emps, err := buildEmployees(employees)
	if err != nil {
		return Principal{}, err
	}

	return Principal{
		ID:         uuid.NewString(),
		Name:       name,
		Percentage: percentage,
		Employees:  emps,
		Values:     []decimal.Decimal{},
		AmountSent: decimal.Zero,
	}, nil
}

func buildEmployees(inputs []EmployeeInput) ([]Employee, error) {
	emps := make([]Employee, 0, len(inputs))
	for _, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		if !in.Percentage.IsPositive() || in.Percentage.GreaterThan(oneHundred) {
			return nil, ErrInvalidPercentage
		}
		emps = append(emps, Employee{
			ID:         uuid.NewString(),
			Name:       name,
			Percentage: in.Percentage,
		})
	}
	return emps, nil
}

// GrossTotal is the sum of this principal's raw cash entries.
func (p Principal) GrossTotal() decimal.Decimal {
	total := decimal.Zero
	for _, v := range p.Values {
		total = total.Add(v)
	}
	return total
}

func (p Principal) clone() Principal {
	c := p
	c.Employees = make([]Employee, len(p.Employees))
	copy(c.Employees, p.Employees)
	c.Values = make([]decimal.Decimal, len(p.Values))
	copy(c.Values, p.Values)
	return c
}
