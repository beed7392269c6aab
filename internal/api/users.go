package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/poeconomics/fundbank/internal/model"
	"github.com/poeconomics/fundbank/internal/store"
)

// UsersHandler handles community-user endpoints (depositors, not admin
// accounts).
type UsersHandler struct {
	DB *sql.DB
}

type linkAliasRequest struct {
	Alias string `json:"alias"`
}

// List handles GET /api/users: all usernames plus aliases for search
// suggestions.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	names, err := store.ListUsernames(r.Context(), h.DB)
	if err != nil {
		slog.Warn("user list unavailable, serving empty list", "error", err)
		names = nil
	}
	if names == nil {
		names = []string{}
	}
	jsonResponse(w, http.StatusOK, names)
}

// LinkAlias handles POST /api/users/{name}/aliases.
func (h *UsersHandler) LinkAlias(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	name := r.PathValue("name")

	var req linkAliasRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.LinkAlias(r.Context(), h.DB, claims.Username, name, req.Alias); err != nil {
		if model.IsValidation(err) {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to link alias")
		return
	}

	slog.Info("alias linked", "admin", claims.Username, "user", name, "alias", req.Alias)
	jsonResponse(w, http.StatusOK, map[string]string{"user": name, "alias": req.Alias})
}
