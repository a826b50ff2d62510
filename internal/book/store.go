// Package book owns the current ledger. All mutations are serialized through
// a single Store; each one clones the ledger, applies the change, recomputes
// the aggregates and publishes the new (ledger, aggregates) pair as one
// immutable snapshot. Observers never see a ledger whose aggregates have not
// been recomputed to match.
package book

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rmtavares/splitbook/internal/derive"
	"github.com/rmtavares/splitbook/internal/domain"
)

// Snapshot is a consistent (ledger, aggregates) pair. Once published it is
// never mutated; later mutations build a fresh one.
type Snapshot struct {
	Ledger     domain.Ledger     `json:"ledger"`
	Aggregates domain.Aggregates `json:"aggregates"`
}

// Subscriber receives every published snapshot, in mutation order. Callbacks
// run on the mutating goroutine before the next mutation is accepted; they
// must not block and must not call back into the store's mutation methods.
type Subscriber func(Snapshot)

type Store struct {
	// pub is held across swap plus subscriber fan-out, so snapshots reach
	// subscribers in the order they were published.
	pub sync.Mutex

	mu   sync.Mutex
	snap Snapshot
	subs []Subscriber
}

// New builds a store around an initial ledger, typically the one rehydrated
// from local persistence (or an empty one).
func New(initial domain.Ledger) *Store {
	l := initial.Clone()
	return &Store{snap: Snapshot{Ledger: l, Aggregates: derive.Compute(l)}}
}

// Subscribe registers fn for every snapshot published after this call.
func (s *Store) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Snapshot returns the current published snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// mutate runs fn against a clone of the current ledger. When fn succeeds the
// derived aggregates are recomputed and the new snapshot replaces the old one
// atomically; on error the store is left untouched and the prior snapshot is
// returned alongside the error. The publish lock is held until every
// subscriber has seen the new snapshot, so a concurrent mutation cannot
// deliver its snapshot ahead of an earlier one. Snapshot() takes only the
// inner mutex and never waits on subscribers.
func (s *Store) mutate(fn func(*domain.Ledger) error) (Snapshot, error) {
	s.pub.Lock()
	defer s.pub.Unlock()

	s.mu.Lock()
	next := s.snap.Ledger.Clone()
	if err := fn(&next); err != nil {
		snap := s.snap
		s.mu.Unlock()
		return snap, err
	}

	snap := Snapshot{Ledger: next, Aggregates: derive.Compute(next)}
	s.snap = snap
	subs := make([]Subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return snap, nil
}

// AddPrincipal appends a new principal with empty values and zero amount
// sent. Name and percentage bounds are validated here; the combined
// principal-plus-employees cap is the caller's concern.
func (s *Store) AddPrincipal(name string, percentage decimal.Decimal, employees []domain.EmployeeInput) (Snapshot, error) {
	return s.mutate(func(l *domain.Ledger) error {
		p, err := domain.NewPrincipal(name, percentage, employees)
		if err != nil {
			return fmt.Errorf("AddPrincipal: %w", err)
		}
		l.Principals = append(l.Principals, p)
		return nil
	})
}

// RemovePrincipal deletes the principal and all of its employees together.
func (s *Store) RemovePrincipal(id string) (Snapshot, error) {
	return s.mutate(func(l *domain.Ledger) error {
		for i := range l.Principals {
			if l.Principals[i].ID == id {
				l.Principals = append(l.Principals[:i], l.Principals[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("RemovePrincipal: %w", domain.ErrPrincipalNotFound)
	})
}

// AddCashEntry appends a positive cash value to the principal's entries.
func (s *Store) AddCashEntry(id string, value decimal.Decimal) (Snapshot, error) {
	return s.mutate(func(l *domain.Ledger) error {
		if !value.IsPositive() {
			return fmt.Errorf("AddCashEntry: %w", domain.ErrInvalidValue)
		}
		p := l.Find(id)
		if p == nil {
			return fmt.Errorf("AddCashEntry: %w", domain.ErrPrincipalNotFound)
		}
		p.Values = append(p.Values, value)
		return nil
	})
}

// RemoveCashEntry removes the entry at the given position. Removal is by
// index, not by value, so duplicate amounts are independently removable.
func (s *Store) RemoveCashEntry(id string, index int) (Snapshot, error) {
	return s.mutate(func(l *domain.Ledger) error {
		p := l.Find(id)
		if p == nil {
			return fmt.Errorf("RemoveCashEntry: %w", domain.ErrPrincipalNotFound)
		}
		if index < 0 || index >= len(p.Values) {
			return fmt.Errorf("RemoveCashEntry: index %d: %w", index, domain.ErrEntryNotFound)
		}
		p.Values = append(p.Values[:index], p.Values[index+1:]...)
		return nil
	})
}

// RecordPayment adds amount to the principal's cumulative amount sent.
func (s *Store) RecordPayment(id string, amount decimal.Decimal) (Snapshot, error) {
	return s.mutate(func(l *domain.Ledger) error {
		if !amount.IsPositive() {
			return fmt.Errorf("RecordPayment: %w", domain.ErrInvalidAmount)
		}
		p := l.Find(id)
		if p == nil {
			return fmt.Errorf("RecordPayment: %w", domain.ErrPrincipalNotFound)
		}
		p.AmountSent = p.AmountSent.Add(amount)
		return nil
	})
}

// ClearPayments resets every principal's amount sent to zero. Cash entries
// are untouched.
func (s *Store) ClearPayments() Snapshot {
	snap, _ := s.mutate(func(l *domain.Ledger) error {
		for i := range l.Principals {
			l.Principals[i].AmountSent = decimal.Zero
		}
		return nil
	})
	return snap
}

// EditPrincipal replaces name, percentage and employees wholesale. Values and
// amount sent are untouched. The combined-percentage cap is intentionally not
// re-checked here: an edit may push a principal's configuration past 100%,
// and the derivation engine reports the resulting negative share rather than
// rejecting the edit.
func (s *Store) EditPrincipal(id, name string, percentage decimal.Decimal, employees []domain.EmployeeInput) (Snapshot, error) {
	return s.mutate(func(l *domain.Ledger) error {
		p := l.Find(id)
		if p == nil {
			return fmt.Errorf("EditPrincipal: %w", domain.ErrPrincipalNotFound)
		}
		edited, err := domain.NewPrincipal(name, percentage, employees)
		if err != nil {
			return fmt.Errorf("EditPrincipal: %w", err)
		}
		p.Name = edited.Name
		p.Percentage = edited.Percentage
		p.Employees = edited.Employees
		return nil
	})
}

// ClearPeriod empties every principal's cash entries, keeping the principals
// themselves, their employees and their amount-sent history. Calling it twice
// in a row is the same as calling it once.
func (s *Store) ClearPeriod() Snapshot {
	snap, _ := s.mutate(func(l *domain.Ledger) error {
		for i := range l.Principals {
			l.Principals[i].Values = []decimal.Decimal{}
		}
		return nil
	})
	return snap
}

// Replace swaps the whole ledger, used when a remote record is adopted on
// sync activation. The incoming ledger wins wholesale.
func (s *Store) Replace(l domain.Ledger) Snapshot {
	snap, _ := s.mutate(func(dst *domain.Ledger) error {
		*dst = l.Clone()
		return nil
	})
	return snap
}
