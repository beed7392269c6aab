package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/poeconomics/fundbank/internal/model"
	"github.com/poeconomics/fundbank/internal/store"
)

// TotalsHandler handles per-admin totals endpoints.
type TotalsHandler struct {
	DB *sql.DB
}

// List handles GET /api/totals. A broken totals read degrades to an empty
// list rather than failing the reconciliation page.
func (h *TotalsHandler) List(w http.ResponseWriter, r *http.Request) {
	totals, err := store.ListAdminTotals(r.Context(), h.DB)
	if err != nil {
		slog.Warn("totals unavailable, serving empty list", "error", err)
		totals = nil
	}
	if totals == nil {
		totals = []model.AdminTotals{}
	}
	jsonResponse(w, http.StatusOK, totals)
}

// Get handles GET /api/totals/{admin}. Unseen admins read as zeros.
func (h *TotalsHandler) Get(w http.ResponseWriter, r *http.Request) {
	totals, err := store.GetAdminTotals(r.Context(), h.DB, r.PathValue("admin"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to read totals")
		return
	}
	jsonResponse(w, http.StatusOK, totals)
}

// Reset handles POST /api/totals/{admin}/reset. The response carries the
// zeroed-out prior values; they also live on in the audit trail.
func (h *TotalsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	admin := r.PathValue("admin")

	prior, err := store.ResetAdminTotals(r.Context(), h.DB, claims.Username, admin)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to reset totals")
		return
	}

	slog.Info("totals reset", "admin", claims.Username, "target", admin,
		"prior_normal", prior.TotalNormal, "prior_instant", prior.TotalInstant)
	jsonResponse(w, http.StatusOK, prior)
}
