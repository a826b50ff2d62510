package syncer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmtavares/splitbook/internal/domain"
	"github.com/rmtavares/splitbook/internal/testutil"
)

func newRecordServer(t *testing.T) (*httptest.Server, map[string]json.RawMessage) {
	t.Helper()

	var mu sync.Mutex
	records := map[string]json.RawMessage{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /records/{key}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		content, ok := records[r.PathValue("key")]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(recordPayload{Content: content, UpdatedAt: time.Now().UTC()})
	})
	mux.HandleFunc("PUT /records/{key}", func(w http.ResponseWriter, r *http.Request) {
		var payload recordPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		mu.Lock()
		records[r.PathValue("key")] = payload.Content
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, records
}

func TestClientRoundTrip(t *testing.T) {
	srv, _ := newRecordServer(t)
	client := NewClient(srv.URL, 2*time.Second)
	ctx := context.Background()

	l := testutil.LedgerFixture(t)
	require.NoError(t, client.Upsert(ctx, "k1", l, time.Now().UTC()))

	got, err := client.Fetch(ctx, "k1")
	require.NoError(t, err)
	require.Len(t, got.Principals, 1)
	assert.Equal(t, l.Principals[0].ID, got.Principals[0].ID)
	assert.Equal(t, "Itaú", got.Principals[0].Name)
	require.Len(t, got.Principals[0].Employees, 1)
	assert.True(t, got.Principals[0].Values[0].Equal(testutil.Dec(t, "1000")))
}

func TestClientFetchNotFound(t *testing.T) {
	srv, _ := newRecordServer(t)
	client := NewClient(srv.URL, 2*time.Second)

	_, err := client.Fetch(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, 2*time.Second)
	_, err := client.Fetch(context.Background(), "k1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRecordNotFound)

	err = client.Upsert(context.Background(), "k1", domain.NewLedger(), time.Now().UTC())
	require.Error(t, err)
}

func TestClientKeyEscaping(t *testing.T) {
	srv, records := newRecordServer(t)
	client := NewClient(srv.URL, 2*time.Second)
	ctx := context.Background()

	require.NoError(t, client.Upsert(ctx, "key with spaces/slash", domain.NewLedger(), time.Now().UTC()))
	assert.Len(t, records, 1)

	_, err := client.Fetch(ctx, "key with spaces/slash")
	require.NoError(t, err)
}
