package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/poeconomics/fundbank/internal/model"
)

// SubmitPending queues a collided deposit for admin adjudication. The call
// is idempotent: a partial unique index over (user, item, qty) for open
// entries plus INSERT OR IGNORE + re-SELECT guarantees at most one pending
// row per tuple, and a repeat submission returns the existing entry.
func SubmitPending(ctx context.Context, db *sql.DB, actor, user, item string, qty int, value float64) (*model.PendingDuplicate, error) {
	if user == "" || item == "" {
		return nil, model.Validationf("user and item must not be empty")
	}
	if qty <= 0 {
		return nil, model.Validationf("quantity must be positive, got %d", qty)
	}
	if value < 0 {
		return nil, model.Validationf("value must not be negative, got %v", value)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO pending_duplicates (id, user_name, item, qty, value, status, created_at)
		 VALUES (?, ?, ?, ?, ?, 'pending', ?)`,
		uuid.NewString(), user, item, qty, value, now,
	)
	if err != nil {
		return nil, fmt.Errorf("queueing pending duplicate: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking pending insert: %w", err)
	}

	// Read back whichever open row holds the tuple now: ours or the one
	// that was already pending.
	entry, err := scanPendingRow(tx.QueryRowContext(ctx,
		`SELECT id, user_name, item, qty, value, status, created_at
		 FROM pending_duplicates
		 WHERE user_name = ? AND item = ? AND qty = ? AND status = 'pending'`,
		user, item, qty,
	))
	if err != nil {
		return nil, fmt.Errorf("reading pending duplicate: %w", err)
	}
	if entry == nil {
		return nil, fmt.Errorf("pending duplicate vanished after insert")
	}

	if inserted > 0 {
		details := fmt.Sprintf("%s: %d x %s (value %g) held for review", user, qty, item, value*float64(qty))
		if _, err := appendAudit(ctx, tx, actor, model.ActionDuplicateSubmit, details, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing pending duplicate: %w", err)
	}
	return entry, nil
}

// GetPending returns one pending duplicate by id, or nil if absent.
func GetPending(ctx context.Context, db *sql.DB, id string) (*model.PendingDuplicate, error) {
	entry, err := scanPendingRow(db.QueryRowContext(ctx,
		`SELECT id, user_name, item, qty, value, status, created_at
		 FROM pending_duplicates WHERE id = ?`, id,
	))
	if err != nil {
		return nil, fmt.Errorf("getting pending duplicate: %w", err)
	}
	return entry, nil
}

// ListPending returns pending duplicates, optionally filtered by status,
// oldest first.
func ListPending(ctx context.Context, db *sql.DB, status string) ([]model.PendingDuplicate, error) {
	query := `SELECT id, user_name, item, qty, value, status, created_at FROM pending_duplicates`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing pending duplicates: %w", err)
	}
	defer rows.Close()

	var entries []model.PendingDuplicate
	for rows.Next() {
		var p model.PendingDuplicate
		if err := rows.Scan(&p.ID, &p.User, &p.Item, &p.Qty, &p.Value, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning pending duplicate: %w", err)
		}
		entries = append(entries, p)
	}
	return entries, rows.Err()
}

// ConfirmPending approves a pending duplicate: the entry flips to its
// terminal approved state and the deposit re-enters the ledger with the
// duplicate override, crediting the confirming admin's totals. Calling it
// on an already-terminal entry is a no-op, not an error, and never writes
// a second deposit.
func ConfirmPending(ctx context.Context, db *sql.DB, actor, id string) (*model.PendingDuplicate, error) {
	return adjudicatePending(ctx, db, actor, id, true)
}

// DeclinePending rejects a pending duplicate: terminal declined state, no
// deposit is ever written. Same no-op guard as ConfirmPending.
func DeclinePending(ctx context.Context, db *sql.DB, actor, id string) (*model.PendingDuplicate, error) {
	return adjudicatePending(ctx, db, actor, id, false)
}

func adjudicatePending(ctx context.Context, db *sql.DB, actor, id string, approve bool) (*model.PendingDuplicate, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	entry, err := scanPendingRow(tx.QueryRowContext(ctx,
		`SELECT id, user_name, item, qty, value, status, created_at
		 FROM pending_duplicates WHERE id = ?`, id,
	))
	if err != nil {
		return nil, fmt.Errorf("loading pending duplicate: %w", err)
	}
	if entry == nil {
		return nil, model.Validationf("unknown pending duplicate %q", id)
	}

	// Terminal states are immutable; repeated confirms or declines must not
	// double-apply.
	if entry.Terminal() {
		return entry, nil
	}

	newStatus := model.PendingStatusDeclined
	if approve {
		newStatus = model.PendingStatusApproved
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE pending_duplicates SET status = ? WHERE id = ? AND status = 'pending'`,
		newStatus, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating pending status: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("checking status update: %w", err)
	} else if n != 1 {
		return nil, fmt.Errorf("pending duplicate %s changed concurrently", id)
	}
	entry.Status = newStatus

	now := time.Now().UTC()
	action := model.ActionDuplicateDecline
	details := fmt.Sprintf("declined %s: %d x %s (submitted %s)",
		entry.User, entry.Qty, entry.Item, entry.CreatedAt.Format(time.RFC3339))

	if approve {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO users (name, created_at) VALUES (?, ?)`,
			entry.User, now,
		)
		if err != nil {
			return nil, fmt.Errorf("creating user record: %w", err)
		}

		dep := model.Deposit{
			ID:        uuid.NewString(),
			User:      entry.User,
			Item:      entry.Item,
			Qty:       entry.Qty,
			Value:     entry.Value,
			CreatedAt: now,
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO deposits (id, user_name, item, qty, value, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			dep.ID, dep.User, dep.Item, dep.Qty, dep.Value, dep.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting approved deposit: %w", err)
		}

		if err := addToAdminTotals(ctx, tx, actor, dep.CurrentValue(), 0); err != nil {
			return nil, err
		}

		action = model.ActionDuplicateConfirm
		details = fmt.Sprintf("approved %s: %d x %s (value %g, submitted %s)",
			entry.User, entry.Qty, entry.Item, dep.CurrentValue(), entry.CreatedAt.Format(time.RFC3339))
	}

	if _, err := appendAudit(ctx, tx, actor, action, details, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing adjudication: %w", err)
	}
	return entry, nil
}

func scanPendingRow(row *sql.Row) (*model.PendingDuplicate, error) {
	p := &model.PendingDuplicate{}
	err := row.Scan(&p.ID, &p.User, &p.Item, &p.Qty, &p.Value, &p.Status, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
