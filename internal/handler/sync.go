package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rmtavares/splitbook/internal/domain"
	"github.com/rmtavares/splitbook/internal/logging"
	"github.com/rmtavares/splitbook/internal/syncer"
)

type syncManager interface {
	Activate(ctx context.Context, key string) error
	Deactivate(ctx context.Context) error
	Pull(ctx context.Context) error
	Status() (syncer.State, string, []syncer.Event)
}

// SyncHandler exposes the sync-key lifecycle. A nil manager means no remote
// store is configured and every endpoint reports sync as disabled.
type SyncHandler struct {
	manager syncManager
}

func NewSyncHandler(manager syncManager) *SyncHandler {
	return &SyncHandler{manager: manager}
}

func (h *SyncHandler) enabled(w http.ResponseWriter) bool {
	if h.manager == nil {
		RespondAppError(w, ErrSyncDisabled, nil)
		return false
	}
	return true
}

type syncStatusDTO struct {
	State  string         `json:"state"`
	KeySet bool           `json:"keySet"`
	Events []syncer.Event `json:"events"`
}

func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(w) {
		return
	}
	state, key, events := h.manager.Status()
	RespondSuccess(w, http.StatusOK, syncStatusDTO{
		State:  string(state),
		KeySet: key != "",
		Events: events,
	})
}

type activateRequest struct {
	Key string `json:"key"`
}

func (h *SyncHandler) Activate(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(w) {
		return
	}

	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		RespondValidationError(w, []FieldError{{Field: "key", Message: "required"}})
		return
	}

	if err := h.manager.Activate(r.Context(), strings.TrimSpace(req.Key)); err != nil {
		// The key is set and retriable via pull; the caller still needs to
		// know this connect attempt failed.
		logging.FromContext(r.Context()).Warn("sync activation failed", "error", err)
		RespondAppError(w, ErrSyncUnavailable, err.Error())
		return
	}

	h.Status(w, r)
}

func (h *SyncHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(w) {
		return
	}
	if err := h.manager.Deactivate(r.Context()); err != nil {
		RespondDomainError(w, err)
		return
	}
	h.Status(w, r)
}

func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(w) {
		return
	}
	if err := h.manager.Pull(r.Context()); err != nil {
		if errors.Is(err, domain.ErrNoSyncKey) {
			RespondDomainError(w, err)
			return
		}
		logging.FromContext(r.Context()).Warn("sync pull failed", "error", err)
		RespondAppError(w, ErrSyncUnavailable, err.Error())
		return
	}
	h.Status(w, r)
}
