package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/poeconomics/fundbank/internal/model"
	"github.com/poeconomics/fundbank/internal/store"
)

// AdminsHandler handles dashboard account management (admin role only).
type AdminsHandler struct {
	DB *sql.DB
}

type createAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type updateAdminRequest struct {
	Role string `json:"role"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func adminIDFromPath(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func validRole(role string) bool {
	return role == model.RoleAdmin || role == model.RoleManager
}

// List handles GET /api/admins.
func (h *AdminsHandler) List(w http.ResponseWriter, r *http.Request) {
	admins, err := store.ListAdmins(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list admins")
		return
	}
	if admins == nil {
		admins = []model.Admin{}
	}
	jsonResponse(w, http.StatusOK, admins)
}

// Create handles POST /api/admins.
func (h *AdminsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createAdminRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "username and password required")
		return
	}
	if !validRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	admin, err := store.CreateAdmin(r.Context(), h.DB, req.Username, string(hash), req.Role)
	if err != nil {
		jsonError(w, http.StatusConflict, "username already taken")
		return
	}

	slog.Info("admin account created", "by", claims.Username, "admin", admin.Username, "role", admin.Role)
	jsonResponse(w, http.StatusCreated, admin)
}

// Update handles PUT /api/admins/{id} (role change).
func (h *AdminsHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, err := adminIDFromPath(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid admin id")
		return
	}

	var req updateAdminRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}

	if err := store.UpdateAdminRole(r.Context(), h.DB, id, req.Role); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update admin")
		return
	}

	slog.Info("admin role updated", "by", claims.Username, "admin_id", id, "role", req.Role)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "admin updated"})
}

// ResetPassword handles PUT /api/admins/{id}/password.
func (h *AdminsHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, err := adminIDFromPath(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid admin id")
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Password == "" {
		jsonError(w, http.StatusBadRequest, "password required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	if err := store.UpdateAdminPassword(r.Context(), h.DB, id, string(hash)); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to reset password")
		return
	}

	slog.Info("admin password reset", "by", claims.Username, "admin_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password reset"})
}

// Delete handles DELETE /api/admins/{id} (soft delete).
func (h *AdminsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, err := adminIDFromPath(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid admin id")
		return
	}
	if id == claims.AdminID {
		jsonError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	if err := store.DeleteAdmin(r.Context(), h.DB, id); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete admin")
		return
	}

	slog.Info("admin account deleted", "by", claims.Username, "admin_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "admin deleted"})
}
