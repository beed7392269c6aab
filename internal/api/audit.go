package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/poeconomics/fundbank/internal/model"
	"github.com/poeconomics/fundbank/internal/store"
)

// AuditHandler handles audit log endpoints.
type AuditHandler struct {
	DB *sql.DB
}

func auditFilterFromQuery(r *http.Request) (store.AuditFilter, error) {
	f := store.AuditFilter{
		Actor:  r.URL.Query().Get("actor"),
		Action: r.URL.Query().Get("action"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return f, model.Validationf("invalid limit %q", raw)
		}
		f.Limit = limit
	}
	return f, nil
}

// List handles GET /api/audit?actor=&action=&limit=.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := auditFilterFromQuery(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := store.ListAuditEntries(r.Context(), h.DB, f)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}

// Purge handles DELETE /api/audit. The purge itself is recorded, so the log
// never goes fully silent about its own truncation.
func (h *AuditHandler) Purge(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	f, err := auditFilterFromQuery(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.Limit = 0

	removed, err := store.PurgeAuditEntries(r.Context(), h.DB, claims.Username, f)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to purge audit entries")
		return
	}

	slog.Info("audit log purged", "admin", claims.Username, "removed", removed)
	jsonResponse(w, http.StatusOK, map[string]int64{"removed": removed})
}
