package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/poeconomics/fundbank/internal/model"
	"github.com/poeconomics/fundbank/internal/store"
	"github.com/poeconomics/fundbank/internal/valuation"
)

// DepositsHandler handles ledger endpoints.
type DepositsHandler struct {
	DB    *sql.DB
	Cache *store.DepositCache
}

type depositRequest struct {
	User           string `json:"user"`
	Item           string `json:"item"`
	Qty            int    `json:"qty"`
	AllowDuplicate bool   `json:"allow_duplicate"`
	Instant        bool   `json:"instant"`
}

type duplicateResponse struct {
	Error     string `json:"error"`
	PendingID string `json:"pending_id"`
}

type userDepositsResponse struct {
	User      string          `json:"user"`
	Deposits  []model.Deposit `json:"deposits"`
	Total     float64         `json:"total"`
	PayoutFee float64         `json:"payout_fee"`
	PayoutNet float64         `json:"payout_net"`
}

// unitValueFor prices one unit of an item at current settings, applying the
// instant-sell discount when requested.
func unitValueFor(r *http.Request, db *sql.DB, item string, instant bool) (float64, error) {
	setting, known, err := store.GetItemSetting(r.Context(), db, item)
	if err != nil {
		return 0, err
	}
	if !known {
		return 0, model.Validationf("unknown item %q", item)
	}

	unit, err := valuation.UnitValue(setting.DivineValue, setting.Target)
	if err != nil {
		return 0, err
	}

	if instant {
		pct, err := store.GetBankBuyPct(r.Context(), db)
		if err != nil {
			return 0, err
		}
		unit = valuation.InstantSellUnitValue(unit, pct)
	}
	return unit, nil
}

// Create handles POST /api/deposits. A detected duplicate is not an outright
// failure: the submission is parked for adjudication and the pending id is
// returned with 409.
func (h *DepositsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req depositRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.User == "" || req.Item == "" {
		jsonError(w, http.StatusBadRequest, "user and item required")
		return
	}

	// Aliases fold into the owning username; a brand-new name becomes a new
	// user on first deposit.
	user, err := store.ResolveUser(r.Context(), h.DB, req.User)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == "" {
		user = req.User
	}

	unit, err := unitValueFor(r, h.DB, req.Item, req.Instant)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidConfig):
			jsonError(w, http.StatusUnprocessableEntity, "item configuration is invalid")
		case model.IsValidation(err):
			jsonError(w, http.StatusBadRequest, err.Error())
		default:
			jsonError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	dep, err := store.AddDeposit(r.Context(), h.DB, store.AddDepositParams{
		User:           user,
		Item:           req.Item,
		Qty:            req.Qty,
		ValuePerUnit:   unit,
		AllowDuplicate: req.AllowDuplicate,
		Instant:        req.Instant,
		Actor:          claims.Username,
	})
	if err != nil {
		if errors.Is(err, model.ErrDuplicateDetected) {
			pending, perr := store.SubmitPending(r.Context(), h.DB, claims.Username, user, req.Item, req.Qty, unit)
			if perr != nil {
				jsonError(w, http.StatusInternalServerError, "failed to queue duplicate")
				return
			}
			slog.Info("duplicate deposit held", "admin", claims.Username, "user", user, "pending", pending.ID)
			jsonResponse(w, http.StatusConflict, duplicateResponse{
				Error:     "duplicate deposit held for review",
				PendingID: pending.ID,
			})
			return
		}
		if model.IsValidation(err) {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to add deposit")
		return
	}

	h.Cache.Invalidate()
	slog.Info("deposit added", "admin", claims.Username, "user", user, "item", dep.Item, "qty", dep.Qty)
	jsonResponse(w, http.StatusCreated, dep)
}

// List handles GET /api/deposits, serving the cached aggregate view. A
// broken ledger read degrades to an empty list so the dashboard stays up;
// the degradation is logged.
func (h *DepositsHandler) List(w http.ResponseWriter, r *http.Request) {
	deposits, err := h.Cache.ListAll(r.Context(), h.DB)
	if err != nil {
		slog.Warn("ledger unavailable, serving empty list", "error", err)
		deposits = []model.Deposit{}
	}
	jsonResponse(w, http.StatusOK, deposits)
}

// UserDeposits handles GET /api/users/{name}/deposits: one user's ledger
// plus the payout split for the total.
func (h *DepositsHandler) UserDeposits(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	user, err := store.ResolveUser(r.Context(), h.DB, name)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == "" {
		// Unknown users have an empty ledger, not a missing one.
		user = name
	}

	deposits, err := store.ListDeposits(r.Context(), h.DB, user)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list deposits")
		return
	}
	if deposits == nil {
		deposits = []model.Deposit{}
	}

	var total float64
	for _, d := range deposits {
		total += d.CurrentValue()
	}
	fee, net := valuation.Payout(total)

	jsonResponse(w, http.StatusOK, userDepositsResponse{
		User:      user,
		Deposits:  deposits,
		Total:     total,
		PayoutFee: fee,
		PayoutNet: net,
	})
}

// Delete handles DELETE /api/users/{name}/deposits/{id}. Missing ids delete
// cleanly.
func (h *DepositsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	name := r.PathValue("name")
	id := r.PathValue("id")

	user, err := store.ResolveUser(r.Context(), h.DB, name)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == "" {
		user = name
	}

	if err := store.DeleteDeposit(r.Context(), h.DB, claims.Username, user, id); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete deposit")
		return
	}

	h.Cache.Invalidate()
	jsonResponse(w, http.StatusOK, map[string]string{"message": "deposit deleted"})
}
