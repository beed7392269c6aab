package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/poeconomics/fundbank/internal/imaging"
	"github.com/poeconomics/fundbank/internal/store"
)

// ItemsHandler handles catalog item icons.
type ItemsHandler struct {
	DB *sql.DB
}

// MaxIconUpload bounds the accepted upload size.
const MaxIconUpload = 5 << 20

// UploadIcon handles PUT /api/items/{name}/icon.
func (h *ItemsHandler) UploadIcon(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	name := r.PathValue("name")

	result, err := imaging.Process(http.MaxBytesReader(w, r.Body, MaxIconUpload))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemIcon(r.Context(), h.DB, name, result.Data, result.MIME); err != nil {
		jsonError(w, http.StatusNotFound, "unknown item")
		return
	}

	slog.Info("item icon uploaded", "admin", claims.Username, "item", name, "bytes", len(result.Data))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "icon uploaded"})
}

// GetIcon handles GET /api/items/{name}/icon.
func (h *ItemsHandler) GetIcon(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	data, mime, err := store.GetItemIcon(r.Context(), h.DB, name)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to read icon")
		return
	}
	if len(data) == 0 {
		jsonError(w, http.StatusNotFound, "no icon for item")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
