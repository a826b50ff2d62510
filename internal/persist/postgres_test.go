package persist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmtavares/splitbook/internal/domain"
	"github.com/rmtavares/splitbook/internal/testutil"
)

func TestPostgresStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db := testutil.SetupTestDB(t)
	store := NewPostgresStore(db)
	ctx := context.Background()

	_, err := store.LoadLedger(ctx)
	require.ErrorIs(t, err, ErrNoSnapshot)

	p, err := domain.NewPrincipal("Itaú", dec("10"), []domain.EmployeeInput{
		{Name: "Lipe", Percentage: dec("15")},
	})
	require.NoError(t, err)
	p.Values = append(p.Values, dec("1000"))

	require.NoError(t, store.SaveLedger(ctx, domain.Ledger{Principals: []domain.Principal{p}}))

	got, err := store.LoadLedger(ctx)
	require.NoError(t, err)
	require.Len(t, got.Principals, 1)
	assert.Equal(t, p.ID, got.Principals[0].ID)
	require.Len(t, got.Principals[0].Values, 1)
	assert.True(t, got.Principals[0].Values[0].Equal(dec("1000")))

	// Last write wins on the single ledger record.
	require.NoError(t, store.SaveLedger(ctx, domain.NewLedger()))
	got, err = store.LoadLedger(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Principals)
}

func TestPostgresStoreSyncKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db := testutil.SetupTestDB(t)
	store := NewPostgresStore(db)
	ctx := context.Background()

	key, err := store.LoadSyncKey(ctx)
	require.NoError(t, err)
	assert.Empty(t, key)

	require.NoError(t, store.SaveSyncKey(ctx, "shared-key-123"))
	key, err = store.LoadSyncKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "shared-key-123", key)

	require.NoError(t, store.ClearSyncKey(ctx))
	key, err = store.LoadSyncKey(ctx)
	require.NoError(t, err)
	assert.Empty(t, key)
}
