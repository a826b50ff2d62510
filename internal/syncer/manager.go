// Package syncer keeps the local ledger and a shared remote record in step.
// The lifecycle per sync key: Disconnected (no key, purely local) →
// Activating (key set, first pull pending) → Connected (debounced pushes on
// every mutation) → back to Disconnected when the key is cleared. The remote
// record is never deleted on deactivation.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rmtavares/splitbook/internal/book"
	"github.com/rmtavares/splitbook/internal/domain"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateActivating   State = "activating"
	StateConnected    State = "connected"
)

const (
	pushTimeout     = 10 * time.Second
	eventBufferSize = 20
)

type ledgerStore interface {
	Snapshot() book.Snapshot
	Replace(domain.Ledger) book.Snapshot
}

type keyStore interface {
	SaveSyncKey(ctx context.Context, key string) error
	ClearSyncKey(ctx context.Context) error
}

// Manager drives the sync state machine. Mutation notifications arrive via
// LedgerChanged (subscribed to the book store); pushes are debounced so a
// burst of edits uploads once, and always with the latest ledger.
type Manager struct {
	client   RemoteClient
	store    ledgerStore
	keys     keyStore
	notifier Notifier
	debounce time.Duration

	// pullMu serializes pulls: at most one in flight per manager.
	pullMu sync.Mutex

	mu      sync.Mutex
	state   State
	key     string
	timer   *time.Timer
	pushing bool
	dirty   bool
	events  []Event
}

func NewManager(client RemoteClient, store ledgerStore, keys keyStore, notifier Notifier, debounce time.Duration) *Manager {
	return &Manager{
		client:   client,
		store:    store,
		keys:     keys,
		notifier: notifier,
		debounce: debounce,
		state:    StateDisconnected,
	}
}

// Status reports the current state, the active key and the recent events.
func (m *Manager) Status() (State, string, []Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := make([]Event, len(m.events))
	copy(events, m.events)
	return m.state, m.key, events
}

// Activate sets the sync key, persists it, and performs the first pull. On a
// pull error the key stays set and the manager remains Activating; a later
// Pull retries. No polling happens on its own.
func (m *Manager) Activate(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("Activate: %w", domain.ErrInvalidRequest)
	}

	m.mu.Lock()
	m.stopTimerLocked()
	m.key = key
	m.state = StateActivating
	m.mu.Unlock()

	if err := m.keys.SaveSyncKey(ctx, key); err != nil {
		return fmt.Errorf("Activate: %w", err)
	}

	return m.Pull(ctx)
}

// Pull fetches the remote record for the active key and reconciles:
// existing remote data replaces the local ledger wholesale; an absent record
// is seeded with the current local ledger. Errors leave the state unchanged.
func (m *Manager) Pull(ctx context.Context) error {
	m.pullMu.Lock()
	defer m.pullMu.Unlock()

	m.mu.Lock()
	key := m.key
	m.mu.Unlock()
	if key == "" {
		return fmt.Errorf("Pull: %w", domain.ErrNoSyncKey)
	}

	remote, err := m.client.Fetch(ctx, key)
	switch {
	case err == nil:
		// Deactivated (or rekeyed) while the fetch was in flight: the
		// session is over and its result must not touch local state.
		if !m.keyActive(key) {
			return fmt.Errorf("Pull: %w", domain.ErrNoSyncKey)
		}
		// Remote wins on connect: local state is replaced wholesale.
		m.store.Replace(remote)
		m.connect(key, "remote data adopted")
		return nil

	case errors.Is(err, domain.ErrRecordNotFound):
		if !m.keyActive(key) {
			return fmt.Errorf("Pull: %w", domain.ErrNoSyncKey)
		}
		// No data under this key yet: the local ledger seeds the record.
		snap := m.store.Snapshot()
		if err := m.client.Upsert(ctx, key, snap.Ledger, time.Now().UTC()); err != nil {
			m.emit(Event{Type: EventSyncFailed, Reason: err.Error(), At: time.Now().UTC()})
			return fmt.Errorf("Pull: seed remote: %w", err)
		}
		m.connect(key, "remote record initialized from this device")
		return nil

	default:
		m.emit(Event{Type: EventSyncFailed, Reason: err.Error(), At: time.Now().UTC()})
		return fmt.Errorf("Pull: %w", err)
	}
}

// Deactivate clears the key and returns to Disconnected. The remote record
// is left intact for a future reactivation with the same key.
func (m *Manager) Deactivate(ctx context.Context) error {
	m.mu.Lock()
	if m.key == "" {
		m.mu.Unlock()
		return fmt.Errorf("Deactivate: %w", domain.ErrNoSyncKey)
	}
	m.stopTimerLocked()
	m.key = ""
	m.state = StateDisconnected
	m.dirty = false
	m.mu.Unlock()

	if err := m.keys.ClearSyncKey(ctx); err != nil {
		return fmt.Errorf("Deactivate: %w", err)
	}

	m.emit(Event{Type: EventSessionEnded, At: time.Now().UTC()})
	return nil
}

// LedgerChanged schedules a debounced push while Connected. Another mutation
// inside the quiet period cancels and rearms the timer, so the eventual
// upload reflects the latest ledger, never a stale intermediate one.
// Implements book.Subscriber.
func (m *Manager) LedgerChanged(book.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnected {
		return
	}
	m.scheduleLocked()
}

// Close cancels any pending push. In-flight uploads finish on their own.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked()
}

// keyActive reports whether key is still the active sync key.
func (m *Manager) keyActive(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.key == key
}

func (m *Manager) connect(key, reason string) {
	m.mu.Lock()
	// Deactivated (or rekeyed) while the pull was in flight: drop the result.
	if m.key != key {
		m.mu.Unlock()
		return
	}
	m.state = StateConnected
	m.mu.Unlock()

	m.emit(Event{Type: EventSessionStarted, Reason: reason, At: time.Now().UTC()})
}

func (m *Manager) scheduleLocked() {
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.debounce, m.push)
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// push is the debounce timer callback. Only one push runs at a time; a
// mutation landing mid-push marks the state dirty and a fresh debounce
// window starts once the current upload finishes.
func (m *Manager) push() {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	if m.pushing {
		m.dirty = true
		m.mu.Unlock()
		return
	}
	m.pushing = true
	key := m.key
	m.mu.Unlock()

	snap := m.store.Snapshot()

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	err := m.client.Upsert(ctx, key, snap.Ledger, time.Now().UTC())
	cancel()

	m.mu.Lock()
	m.pushing = false
	redo := m.dirty && m.state == StateConnected && m.key == key
	m.dirty = false
	if redo {
		m.scheduleLocked()
	}
	m.mu.Unlock()

	if err != nil {
		// Reported, never rolled back or retried automatically: local state
		// stays authoritative and the next mutation re-attempts the upload.
		m.emit(Event{Type: EventSyncFailed, Reason: err.Error(), At: time.Now().UTC()})
		return
	}
	m.emit(Event{Type: EventSyncSucceeded, At: time.Now().UTC()})
}

func (m *Manager) emit(e Event) {
	m.mu.Lock()
	m.events = append(m.events, e)
	if len(m.events) > eventBufferSize {
		m.events = m.events[len(m.events)-eventBufferSize:]
	}
	m.mu.Unlock()

	if m.notifier != nil {
		m.notifier.Notify(e)
	}
}
