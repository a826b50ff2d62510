package domain

import "errors"

var (
	ErrPrincipalNotFound = errors.New("principal not found")
	ErrEntryNotFound     = errors.New("cash entry not found")
	ErrEmptyName         = errors.New("name must not be empty")
	ErrInvalidPercentage = errors.New("percentage must be between 0 and 100")
	ErrInvalidValue      = errors.New("value must be greater than zero")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrNoSyncKey         = errors.New("no sync key active")
	ErrRecordNotFound    = errors.New("remote record not found")
)
