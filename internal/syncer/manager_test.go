package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmtavares/splitbook/internal/book"
	"github.com/rmtavares/splitbook/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeRemote struct {
	mu       sync.Mutex
	records  map[string]domain.Ledger
	fetchErr error
	putErr   error
	puts     int

	// When set, Fetch signals fetchStarted and then blocks until fetchGate
	// closes, to hold a pull in flight at a chosen point. Set both only
	// while no fetch is running.
	fetchStarted chan struct{}
	fetchGate    chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{records: map[string]domain.Ledger{}}
}

func (f *fakeRemote) Fetch(_ context.Context, key string) (domain.Ledger, error) {
	if f.fetchStarted != nil {
		f.fetchStarted <- struct{}{}
		<-f.fetchGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return domain.Ledger{}, f.fetchErr
	}
	l, ok := f.records[key]
	if !ok {
		return domain.Ledger{}, domain.ErrRecordNotFound
	}
	return l, nil
}

func (f *fakeRemote) Upsert(_ context.Context, key string, l domain.Ledger, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	f.records[key] = l.Clone()
	return nil
}

func (f *fakeRemote) record(key string) (domain.Ledger, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.records[key]
	return l, ok
}

func (f *fakeRemote) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

type fakeKeyStore struct {
	mu  sync.Mutex
	key string
}

func (f *fakeKeyStore) SaveSyncKey(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.key = key
	return nil
}

func (f *fakeKeyStore) ClearSyncKey(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.key = ""
	return nil
}

func localStoreWith(t *testing.T, name string, values ...string) (*book.Store, string) {
	t.Helper()
	s := book.New(domain.NewLedger())
	snap, err := s.AddPrincipal(name, dec("10"), nil)
	require.NoError(t, err)
	id := snap.Ledger.Principals[0].ID
	for _, v := range values {
		_, err := s.AddCashEntry(id, dec(v))
		require.NoError(t, err)
	}
	return s, id
}

func newManager(store *book.Store, remote RemoteClient, debounce time.Duration) (*Manager, *fakeKeyStore) {
	keys := &fakeKeyStore{}
	m := NewManager(remote, store, keys, nil, debounce)
	store.Subscribe(m.LedgerChanged)
	return m, keys
}

func TestActivateSeedsEmptyRemote(t *testing.T) {
	remote := newFakeRemote()
	store, _ := localStoreWith(t, "local", "100")
	m, keys := newManager(store, remote, time.Hour)

	require.NoError(t, m.Activate(context.Background(), "k1"))

	state, key, events := m.Status()
	assert.Equal(t, StateConnected, state)
	assert.Equal(t, "k1", key)
	assert.Equal(t, "k1", keys.key)

	seeded, ok := remote.record("k1")
	require.True(t, ok, "remote record must equal the pre-activation local ledger")
	require.Len(t, seeded.Principals, 1)
	assert.Equal(t, "local", seeded.Principals[0].Name)

	require.NotEmpty(t, events)
	assert.Equal(t, EventSessionStarted, events[len(events)-1].Type)
}

func TestActivateAdoptsPopulatedRemote(t *testing.T) {
	remote := newFakeRemote()
	remoteLedger := domain.NewLedger()
	p, err := domain.NewPrincipal("remote", dec("20"), nil)
	require.NoError(t, err)
	p.Values = append(p.Values, dec("500"))
	remoteLedger.Principals = append(remoteLedger.Principals, p)
	remote.records["k1"] = remoteLedger

	store, _ := localStoreWith(t, "local", "100")
	m, _ := newManager(store, remote, time.Hour)

	require.NoError(t, m.Activate(context.Background(), "k1"))

	snap := store.Snapshot()
	require.Len(t, snap.Ledger.Principals, 1)
	assert.Equal(t, "remote", snap.Ledger.Principals[0].Name, "remote wins on first connect")
	assert.True(t, snap.Aggregates.TotalGeneral.Equal(dec("500")))
}

func TestPullFailureStaysActivating(t *testing.T) {
	remote := newFakeRemote()
	remote.fetchErr = errors.New("network down")
	store, _ := localStoreWith(t, "local", "100")
	m, keys := newManager(store, remote, time.Hour)

	err := m.Activate(context.Background(), "k1")
	require.Error(t, err)

	state, key, events := m.Status()
	assert.Equal(t, StateActivating, state, "no transition to Connected on pull failure")
	assert.Equal(t, "k1", key, "key stays set")
	assert.Equal(t, "k1", keys.key)
	require.NotEmpty(t, events)
	assert.Equal(t, EventSyncFailed, events[len(events)-1].Type)

	// Explicit retry succeeds once the store is reachable again.
	remote.mu.Lock()
	remote.fetchErr = nil
	remote.mu.Unlock()
	require.NoError(t, m.Pull(context.Background()))
	state, _, _ = m.Status()
	assert.Equal(t, StateConnected, state)
}

func TestDebouncedPushUploadsLatestOnly(t *testing.T) {
	remote := newFakeRemote()
	store, id := localStoreWith(t, "local")
	m, _ := newManager(store, remote, 30*time.Millisecond)

	require.NoError(t, m.Activate(context.Background(), "k1"))
	seedPuts := remote.putCount()

	// Three mutations inside the quiet period collapse into one upload.
	for _, v := range []string{"100", "200", "300"} {
		_, err := store.AddCashEntry(id, dec(v))
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return remote.putCount() == seedPuts+1
	}, 2*time.Second, 10*time.Millisecond)

	pushed, _ := remote.record("k1")
	require.Len(t, pushed.Principals, 1)
	assert.Len(t, pushed.Principals[0].Values, 3, "the upload must carry the latest ledger")

	// No further pushes without further mutations.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, seedPuts+1, remote.putCount())
}

func TestPushFailureReportedWithoutRollback(t *testing.T) {
	remote := newFakeRemote()
	store, id := localStoreWith(t, "local")
	m, _ := newManager(store, remote, 10*time.Millisecond)

	require.NoError(t, m.Activate(context.Background(), "k1"))

	remote.mu.Lock()
	remote.putErr = errors.New("remote store unavailable")
	remote.mu.Unlock()

	_, err := store.AddCashEntry(id, dec("100"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, _, events := m.Status()
		return len(events) > 0 && events[len(events)-1].Type == EventSyncFailed
	}, 2*time.Second, 10*time.Millisecond)

	state, _, _ := m.Status()
	assert.Equal(t, StateConnected, state, "a push failure does not disconnect")
	snap := store.Snapshot()
	assert.Len(t, snap.Ledger.Principals[0].Values, 1, "local state is never rolled back")
}

func TestDeactivateLeavesRemoteIntact(t *testing.T) {
	remote := newFakeRemote()
	store, id := localStoreWith(t, "local", "100")
	m, keys := newManager(store, remote, time.Hour)

	require.NoError(t, m.Activate(context.Background(), "k1"))
	require.NoError(t, m.Deactivate(context.Background()))

	state, key, events := m.Status()
	assert.Equal(t, StateDisconnected, state)
	assert.Empty(t, key)
	assert.Empty(t, keys.key)
	assert.Equal(t, EventSessionEnded, events[len(events)-1].Type)

	_, ok := remote.record("k1")
	assert.True(t, ok, "no remote delete on deactivation")

	// Purely local again: mutations trigger no network activity.
	puts := remote.putCount()
	_, err := store.AddCashEntry(id, dec("50"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, puts, remote.putCount())

	assert.ErrorIs(t, m.Deactivate(context.Background()), domain.ErrNoSyncKey)
}

func TestDeactivateDuringPullDropsResult(t *testing.T) {
	remote := newFakeRemote()
	remote.fetchErr = errors.New("network down")
	store, _ := localStoreWith(t, "local", "100")
	m, _ := newManager(store, remote, time.Hour)

	// Key set, first pull failed: the session sits in Activating.
	require.Error(t, m.Activate(context.Background(), "k1"))

	remoteLedger := domain.NewLedger()
	p, err := domain.NewPrincipal("remote", dec("20"), nil)
	require.NoError(t, err)
	remoteLedger.Principals = append(remoteLedger.Principals, p)

	remote.mu.Lock()
	remote.fetchErr = nil
	remote.records["k1"] = remoteLedger
	remote.mu.Unlock()
	remote.fetchStarted = make(chan struct{})
	remote.fetchGate = make(chan struct{})

	// The retry pull blocks inside Fetch; the key is cleared underneath it.
	pullErr := make(chan error, 1)
	go func() { pullErr <- m.Pull(context.Background()) }()
	<-remote.fetchStarted
	require.NoError(t, m.Deactivate(context.Background()))
	close(remote.fetchGate)

	assert.ErrorIs(t, <-pullErr, domain.ErrNoSyncKey)

	snap := store.Snapshot()
	require.Len(t, snap.Ledger.Principals, 1)
	assert.Equal(t, "local", snap.Ledger.Principals[0].Name,
		"a session ended mid-pull never adopts remote data")
	state, _, _ := m.Status()
	assert.Equal(t, StateDisconnected, state)
}

func TestPullWithoutKey(t *testing.T) {
	store, _ := localStoreWith(t, "local")
	m, _ := newManager(store, newFakeRemote(), time.Hour)

	assert.ErrorIs(t, m.Pull(context.Background()), domain.ErrNoSyncKey)
	assert.ErrorIs(t, m.Activate(context.Background(), ""), domain.ErrInvalidRequest)
}
