package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrPrincipalNotFound = &AppError{http.StatusNotFound, "PRINCIPAL_NOT_FOUND", "Principal not found"}
	ErrEntryNotFound     = &AppError{http.StatusNotFound, "CASH_ENTRY_NOT_FOUND", "Cash entry not found"}
	ErrInvalidPercentage = &AppError{http.StatusBadRequest, "INVALID_PERCENTAGE", "Percentage must be between 0 and 100"}
	ErrInvalidValue      = &AppError{http.StatusBadRequest, "INVALID_VALUE", "Value must be greater than zero"}
	ErrInvalidAmount     = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrEmptyName         = &AppError{http.StatusBadRequest, "EMPTY_NAME", "Name must not be empty"}

	ErrSyncDisabled    = &AppError{http.StatusNotFound, "SYNC_DISABLED", "No remote store is configured"}
	ErrNoSyncKey       = &AppError{http.StatusConflict, "NO_SYNC_KEY", "No sync key is active"}
	ErrSyncUnavailable = &AppError{http.StatusBadGateway, "SYNC_UNAVAILABLE", "Remote store is unreachable"}
)
