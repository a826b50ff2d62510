package persist

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmtavares/splitbook/internal/domain"
)

// The persisted record went through three shapes over the system's history:
//
//	v1: {"bosses": [{id, name, percentage, values}]}            no employees, no amountSent
//	v2: {"bosses": [{..., employees}]}                          no amountSent
//	v3: {"version": 3, "principals": [{..., amountSent}]}       current
//
// Older records also carried the derived totals alongside the raw data; those
// are ignored on load and recomputed. DecodeLedger recognizes all three
// shapes and upgrades in place by defaulting the missing fields.
const recordVersion = 3

type ledgerRecord struct {
	Version    int                `json:"version,omitempty"`
	Principals []domain.Principal `json:"principals"`

	// Legacy key used by v1/v2 records.
	Bosses []domain.Principal `json:"bosses,omitempty"`
}

// EncodeLedger serializes the ledger in the current record shape.
func EncodeLedger(l domain.Ledger) ([]byte, error) {
	rec := ledgerRecord{Version: recordVersion, Principals: l.Principals}
	if rec.Principals == nil {
		rec.Principals = []domain.Principal{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("EncodeLedger: %w", err)
	}
	return data, nil
}

// DecodeLedger parses a persisted record of any known shape.
func DecodeLedger(data []byte) (domain.Ledger, error) {
	var rec ledgerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Ledger{}, fmt.Errorf("DecodeLedger: %w", err)
	}

	principals := rec.Principals
	if len(principals) == 0 && rec.Bosses != nil {
		principals = rec.Bosses
	}
	if principals == nil {
		principals = []domain.Principal{}
	}

	for i := range principals {
		upgradePrincipal(&principals[i])
	}

	return domain.Ledger{Principals: principals}, nil
}

// upgradePrincipal defaults the fields older record shapes did not carry.
// AmountSent needs no handling: a missing field decodes to decimal zero.
func upgradePrincipal(p *domain.Principal) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Employees == nil {
		p.Employees = []domain.Employee{}
	}
	if p.Values == nil {
		p.Values = []decimal.Decimal{}
	}
	for i := range p.Employees {
		if p.Employees[i].ID == "" {
			p.Employees[i].ID = uuid.NewString()
		}
	}
}
