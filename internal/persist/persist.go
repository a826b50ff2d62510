// Package persist durably stores the ledger snapshot and the active sync
// key. Two records exist: the serialized ledger and, independently, the sync
// key. Both have a file-backed and a Postgres-backed implementation.
package persist

import (
	"context"
	"errors"

	"github.com/rmtavares/splitbook/internal/domain"
)

// ErrNoSnapshot reports that no prior ledger state is available, either
// because nothing was ever saved or because the stored record could not be
// parsed. Startup treats both the same way: begin with an empty ledger.
var ErrNoSnapshot = errors.New("no ledger snapshot")

// SnapshotStore is the durable record store for the ledger and the sync key.
// Last write wins; readers never observe a partial write.
type SnapshotStore interface {
	LoadLedger(ctx context.Context) (domain.Ledger, error)
	SaveLedger(ctx context.Context, l domain.Ledger) error

	LoadSyncKey(ctx context.Context) (string, error)
	SaveSyncKey(ctx context.Context, key string) error
	ClearSyncKey(ctx context.Context) error
}
