package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/rmtavares/splitbook/internal/book"
	"github.com/rmtavares/splitbook/internal/domain"
	"github.com/rmtavares/splitbook/internal/logging"
)

type ledgerStore interface {
	Snapshot() book.Snapshot
	AddPrincipal(name string, percentage decimal.Decimal, employees []domain.EmployeeInput) (book.Snapshot, error)
	RemovePrincipal(id string) (book.Snapshot, error)
	AddCashEntry(id string, value decimal.Decimal) (book.Snapshot, error)
	RemoveCashEntry(id string, index int) (book.Snapshot, error)
	RecordPayment(id string, amount decimal.Decimal) (book.Snapshot, error)
	ClearPayments() book.Snapshot
	EditPrincipal(id, name string, percentage decimal.Decimal, employees []domain.EmployeeInput) (book.Snapshot, error)
	ClearPeriod() book.Snapshot
}

type LedgerHandler struct {
	store ledgerStore
}

func NewLedgerHandler(store ledgerStore) *LedgerHandler {
	return &LedgerHandler{store: store}
}

type employeeRequest struct {
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
}

type principalRequest struct {
	Name       string            `json:"name"`
	Percentage decimal.Decimal   `json:"percentage"`
	Employees  []employeeRequest `json:"employees"`
}

var oneHundred = decimal.NewFromInt(100)

// validate checks the shared field constraints. The combined-percentage cap
// applies only when creating: edits are allowed to exceed 100% and the
// derived negative share is surfaced instead.
func (r principalRequest) validate(creating bool) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "required"})
	}
	if r.Percentage.IsNegative() || r.Percentage.GreaterThan(oneHundred) {
		errs = append(errs, FieldError{Field: "percentage", Message: "must be between 0 and 100"})
	}

	combined := r.Percentage
	for i, e := range r.Employees {
		field := "employees[" + strconv.Itoa(i) + "]"
		if strings.TrimSpace(e.Name) == "" {
			errs = append(errs, FieldError{Field: field + ".name", Message: "required"})
		}
		if !e.Percentage.IsPositive() || e.Percentage.GreaterThan(oneHundred) {
			errs = append(errs, FieldError{Field: field + ".percentage", Message: "must be greater than 0 and at most 100"})
		}
		combined = combined.Add(e.Percentage)
	}

	if creating && combined.GreaterThan(oneHundred) {
		errs = append(errs, FieldError{Field: "percentage", Message: "combined principal and employee percentages must not exceed 100"})
	}
	return errs
}

func (r principalRequest) employeeInputs() []domain.EmployeeInput {
	inputs := make([]domain.EmployeeInput, 0, len(r.Employees))
	for _, e := range r.Employees {
		inputs = append(inputs, domain.EmployeeInput{Name: e.Name, Percentage: e.Percentage})
	}
	return inputs
}

func (h *LedgerHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	RespondSuccess(w, http.StatusOK, h.store.Snapshot())
}

func (h *LedgerHandler) CreatePrincipal(w http.ResponseWriter, r *http.Request) {
	var req principalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.validate(true); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	snap, err := h.store.AddPrincipal(req.Name, req.Percentage, req.employeeInputs())
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to add principal", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, snap)
}

func (h *LedgerHandler) EditPrincipal(w http.ResponseWriter, r *http.Request) {
	var req principalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.validate(false); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	snap, err := h.store.EditPrincipal(chi.URLParam(r, "id"), req.Name, req.Percentage, req.employeeInputs())
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, snap)
}

func (h *LedgerHandler) RemovePrincipal(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.RemovePrincipal(chi.URLParam(r, "id"))
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, snap)
}

type cashEntryRequest struct {
	Value decimal.Decimal `json:"value"`
}

func (h *LedgerHandler) AddCashEntry(w http.ResponseWriter, r *http.Request) {
	var req cashEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	snap, err := h.store.AddCashEntry(chi.URLParam(r, "id"), req.Value)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, snap)
}

func (h *LedgerHandler) RemoveCashEntry(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "index", Message: "must be an integer"}})
		return
	}

	snap, err := h.store.RemoveCashEntry(chi.URLParam(r, "id"), index)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, snap)
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *LedgerHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	snap, err := h.store.RecordPayment(chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, snap)
}

func (h *LedgerHandler) ClearPayments(w http.ResponseWriter, r *http.Request) {
	RespondSuccess(w, http.StatusOK, h.store.ClearPayments())
}

func (h *LedgerHandler) ClearPeriod(w http.ResponseWriter, r *http.Request) {
	RespondSuccess(w, http.StatusOK, h.store.ClearPeriod())
}
