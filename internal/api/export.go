package api

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/poeconomics/fundbank/internal/model"
	"github.com/poeconomics/fundbank/internal/store"
)

// ExportHandler streams ledger data as CSV and accepts bulk CSV uploads.
type ExportHandler struct {
	DB    *sql.DB
	Cache *store.DepositCache
}

// parseTimeParam accepts RFC 3339 timestamps or plain dates.
func parseTimeParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", raw)
	}
	return t, nil
}

// Export handles GET /api/deposits/export?user=&from=&to=.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user != "" {
		resolved, err := store.ResolveUser(r.Context(), h.DB, user)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if resolved != "" {
			user = resolved
		}
	}

	from, err := parseTimeParam(r.URL.Query().Get("from"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseTimeParam(r.URL.Query().Get("to"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	deposits, err := store.ListDepositsRange(r.Context(), h.DB, user, from, to)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to export deposits")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="deposits.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"username", "item", "qty", "unit_value", "value", "timestamp"})
	for _, d := range deposits {
		_ = cw.Write([]string{
			d.User,
			d.Item,
			strconv.Itoa(d.Qty),
			strconv.FormatFloat(d.Value, 'g', -1, 64),
			strconv.FormatFloat(d.CurrentValue(), 'g', -1, 64),
			d.CreatedAt.Format(time.RFC3339),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.Error("writing csv export", "error", err)
	}
}

type bulkResult struct {
	Added  int      `json:"added"`
	Held   int      `json:"held"`
	Failed []string `json:"failed,omitempty"`
}

// BulkUpload handles POST /api/deposits/bulk. The body is CSV with a
// username,item,qty header. Each row is priced at current settings and added
// independently: collisions are parked for review, bad rows are reported
// without aborting the rest.
func (h *ExportHandler) BulkUpload(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	defer r.Body.Close()

	cr := csv.NewReader(r.Body)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		jsonError(w, http.StatusBadRequest, "missing csv header")
		return
	}
	if len(header) < 3 || header[0] != "username" || header[1] != "item" || header[2] != "qty" {
		jsonError(w, http.StatusBadRequest, "csv header must be username,item,qty")
		return
	}

	var result bulkResult
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Failed = append(result.Failed, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		qty, err := strconv.Atoi(record[2])
		if err != nil {
			result.Failed = append(result.Failed, fmt.Sprintf("line %d: bad quantity %q", line, record[2]))
			continue
		}

		user, err := store.ResolveUser(r.Context(), h.DB, record[0])
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if user == "" {
			user = record[0]
		}

		unit, err := unitValueFor(r, h.DB, record[1], false)
		if err != nil {
			result.Failed = append(result.Failed, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		_, err = store.AddDeposit(r.Context(), h.DB, store.AddDepositParams{
			User: user, Item: record[1], Qty: qty, ValuePerUnit: unit, Actor: claims.Username,
		})
		switch {
		case err == nil:
			result.Added++
		case errors.Is(err, model.ErrDuplicateDetected):
			if _, perr := store.SubmitPending(r.Context(), h.DB, claims.Username, user, record[1], qty, unit); perr != nil {
				result.Failed = append(result.Failed, fmt.Sprintf("line %d: %v", line, perr))
				continue
			}
			result.Held++
		case model.IsValidation(err):
			result.Failed = append(result.Failed, fmt.Sprintf("line %d: %v", line, err))
		default:
			jsonError(w, http.StatusInternalServerError, "failed to add deposit")
			return
		}
	}

	details := fmt.Sprintf("bulk upload: added=%d held=%d failed=%d", result.Added, result.Held, len(result.Failed))
	if _, err := store.AppendAudit(r.Context(), h.DB, claims.Username, model.ActionDepositBulk, details); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to record bulk upload")
		return
	}

	h.Cache.Invalidate()
	slog.Info("bulk upload processed", "admin", claims.Username,
		"added", result.Added, "held", result.Held, "failed", len(result.Failed))
	jsonResponse(w, http.StatusOK, result)
}
