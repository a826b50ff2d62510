package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmtavares/splitbook/internal/book"
	"github.com/rmtavares/splitbook/internal/domain"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func newTestRouter(t *testing.T) (http.Handler, *book.Store) {
	t.Helper()
	store := book.New(domain.NewLedger())
	router := NewRouter(NewLedgerHandler(store), NewSyncHandler(nil), NewHealthHandler(nil))
	return router, store
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) book.Snapshot {
	t.Helper()
	var resp struct {
		Success bool          `json:"success"`
		Data    book.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Data
}

func TestCreatePrincipalAndAddValue(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/principals",
		`{"name":"Itaú","percentage":10,"employees":[{"name":"Lipe","percentage":15}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	snap := decodeSnapshot(t, rec)
	require.Len(t, snap.Ledger.Principals, 1)
	id := snap.Ledger.Principals[0].ID

	rec = doRequest(t, router, http.MethodPost, "/api/v1/principals/"+id+"/values", `{"value":1000}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	snap = decodeSnapshot(t, rec)
	pt := snap.Aggregates.Principals[0]
	assert.Equal(t, "1000", pt.GrossTotal.String())
	assert.Equal(t, "100", pt.OperatorShare.String())
	assert.Equal(t, "150", pt.EmployeeShare.String())
	assert.Equal(t, "750", pt.PrincipalShare.String())
}

func TestCreatePrincipalValidation(t *testing.T) {
	router, store := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty name", `{"name":"  ","percentage":10}`},
		{"percentage out of range", `{"name":"a","percentage":101}`},
		{"zero employee percentage", `{"name":"a","percentage":10,"employees":[{"name":"x","percentage":0}]}`},
		{"combined over 100", `{"name":"a","percentage":60,"employees":[{"name":"x","percentage":50}]}`},
		{"malformed body", `{"name":`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/api/v1/principals", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	assert.Empty(t, store.Snapshot().Ledger.Principals)
}

func TestEditPrincipalAllowsCombinedOver100(t *testing.T) {
	router, store := newTestRouter(t)

	snap, err := store.AddPrincipal("a", dec(t, "10"), nil)
	require.NoError(t, err)
	id := snap.Ledger.Principals[0].ID
	_, err = store.AddCashEntry(id, dec(t, "100"))
	require.NoError(t, err)

	// The same payload is rejected on create but accepted on edit.
	body := `{"name":"a","percentage":60,"employees":[{"name":"x","percentage":50}]}`
	rec := doRequest(t, router, http.MethodPut, "/api/v1/principals/"+id, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeSnapshot(t, rec)
	assert.Equal(t, "-10", got.Aggregates.Principals[0].PrincipalShare.String())
}

func TestRemoveCashEntryByIndex(t *testing.T) {
	router, store := newTestRouter(t)

	snap, err := store.AddPrincipal("a", dec(t, "0"), nil)
	require.NoError(t, err)
	id := snap.Ledger.Principals[0].ID
	for _, v := range []string{"50", "50"} {
		_, err := store.AddCashEntry(id, dec(t, v))
		require.NoError(t, err)
	}

	rec := doRequest(t, router, http.MethodDelete, "/api/v1/principals/"+id+"/values/0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeSnapshot(t, rec).Ledger.Principals[0].Values, 1)

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/principals/"+id+"/values/5", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/principals/"+id+"/values/x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentsLifecycle(t *testing.T) {
	router, store := newTestRouter(t)

	snap, err := store.AddPrincipal("a", dec(t, "10"), nil)
	require.NoError(t, err)
	id := snap.Ledger.Principals[0].ID

	rec := doRequest(t, router, http.MethodPost, "/api/v1/principals/"+id+"/payments", `{"amount":300}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, router, http.MethodPost, "/api/v1/principals/"+id+"/payments", `{"amount":200}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "500", decodeSnapshot(t, rec).Ledger.Principals[0].AmountSent.String())

	rec = doRequest(t, router, http.MethodPost, "/api/v1/payments/clear", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", decodeSnapshot(t, rec).Ledger.Principals[0].AmountSent.String())

	rec = doRequest(t, router, http.MethodPost, "/api/v1/principals/unknown/payments", `{"amount":10}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncDisabled(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/sync", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, http.MethodPut, "/api/v1/sync/key", `{"key":"k"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthLive(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doRequest(t, router, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
