package handler

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter wires the API surface. Middleware is applied by the caller so
// tests can mount the bare routes.
func NewRouter(ledger *LedgerHandler, sync *SyncHandler, health *HealthHandler) chi.Router {
	r := chi.NewRouter()

	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ledger", ledger.GetSnapshot)

		r.Post("/principals", ledger.CreatePrincipal)
		r.Put("/principals/{id}", ledger.EditPrincipal)
		r.Delete("/principals/{id}", ledger.RemovePrincipal)
		r.Post("/principals/{id}/values", ledger.AddCashEntry)
		r.Delete("/principals/{id}/values/{index}", ledger.RemoveCashEntry)
		r.Post("/principals/{id}/payments", ledger.RecordPayment)
		r.Post("/payments/clear", ledger.ClearPayments)
		r.Post("/period/clear", ledger.ClearPeriod)

		r.Get("/sync", sync.Status)
		r.Put("/sync/key", sync.Activate)
		r.Delete("/sync/key", sync.Deactivate)
		r.Post("/sync/pull", sync.Pull)
	})

	return r
}
