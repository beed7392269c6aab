package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/poeconomics/fundbank/internal/model"
	"github.com/poeconomics/fundbank/internal/store"
	"github.com/poeconomics/fundbank/internal/valuation"
)

// QuoteHandler prices what-if baskets without touching the ledger.
type QuoteHandler struct {
	DB *sql.DB
}

type quoteRequest struct {
	Lines   []valuation.BasketLine `json:"lines"`
	Instant bool                   `json:"instant"`
}

type quoteResponse struct {
	Lines     []valuation.PricedLine `json:"lines"`
	Total     float64                `json:"total"`
	PayoutFee float64                `json:"payout_fee"`
	PayoutNet float64                `json:"payout_net"`
}

// Quote handles POST /api/quote.
func (h *QuoteHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Lines) == 0 {
		jsonError(w, http.StatusBadRequest, "at least one basket line required")
		return
	}

	settings, err := store.GetSettings(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to read settings")
		return
	}

	priced, total, err := valuation.PriceBasket(req.Lines, settings)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidConfig):
			jsonError(w, http.StatusUnprocessableEntity, "item configuration is invalid")
		case model.IsValidation(err):
			jsonError(w, http.StatusBadRequest, err.Error())
		default:
			jsonError(w, http.StatusInternalServerError, "failed to price basket")
		}
		return
	}

	if req.Instant {
		total = 0
		for i := range priced {
			priced[i].UnitValue = valuation.InstantSellUnitValue(priced[i].UnitValue, settings.BankBuyPct)
			priced[i].Value = valuation.CurrentValue(priced[i].Qty, priced[i].UnitValue)
			total += priced[i].Value
		}
	}

	fee, net := valuation.Payout(total)
	jsonResponse(w, http.StatusOK, quoteResponse{
		Lines:     priced,
		Total:     total,
		PayoutFee: fee,
		PayoutNet: net,
	})
}
