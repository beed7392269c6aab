package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/poeconomics/fundbank/internal/model"
	"github.com/poeconomics/fundbank/internal/store"
)

// SettingsHandler handles exchange-rate configuration endpoints.
type SettingsHandler struct {
	DB *sql.DB
}

// Get handles GET /api/settings. A broken settings read degrades to pure
// defaults instead of failing the dashboard; the degradation is logged.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := store.GetSettings(r.Context(), h.DB)
	if err != nil {
		slog.Warn("settings unavailable, serving defaults", "error", err)
		settings = &model.Settings{
			Items:      map[string]model.ItemSetting{},
			BankBuyPct: model.DefaultBankBuyPct,
		}
	}
	jsonResponse(w, http.StatusOK, settings)
}

// Put handles PUT /api/settings. The whole configuration is validated and
// saved as one unit.
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req model.Settings
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Items == nil {
		req.Items = map[string]model.ItemSetting{}
	}
	for name, item := range req.Items {
		item.Name = name
		req.Items[name] = item
	}

	if err := store.SaveSettings(r.Context(), h.DB, claims.Username, &req); err != nil {
		if model.IsValidation(err) {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	slog.Info("settings saved", "admin", claims.Username, "items", len(req.Items))
	jsonResponse(w, http.StatusOK, req)
}
