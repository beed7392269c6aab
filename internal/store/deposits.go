package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/poeconomics/fundbank/internal/model"
)

// AddDepositParams describes one ledger insertion.
type AddDepositParams struct {
	User         string
	Item         string
	Qty          int
	ValuePerUnit float64

	// AllowDuplicate bypasses the collision check; set when re-entering the
	// ledger from a confirmed pending duplicate.
	AllowDuplicate bool

	// Instant marks an instant-sell deposit; the value is credited to the
	// actor's instant counter instead of the normal one.
	Instant bool

	// Actor is the admin performing the insertion.
	Actor string
}

// AddDeposit appends one deposit to a user's ledger. The duplicate check,
// the insert, the actor's totals increment, and the audit entry all share
// one transaction: two concurrent identical submissions cannot both land,
// and a failure leaves no partial state behind.
//
// A collision with an existing (item, qty) deposit for the same user
// returns model.ErrDuplicateDetected without writing anything; the caller
// is expected to route the submission to the duplicate workflow.
func AddDeposit(ctx context.Context, db *sql.DB, p AddDepositParams) (*model.Deposit, error) {
	if p.User == "" {
		return nil, model.Validationf("user must not be empty")
	}
	if p.Item == "" {
		return nil, model.Validationf("item must not be empty")
	}
	if p.Qty <= 0 {
		return nil, model.Validationf("quantity must be positive, got %d", p.Qty)
	}
	if p.ValuePerUnit < 0 {
		return nil, model.Validationf("value per unit must not be negative, got %v", p.ValuePerUnit)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// The deposit must reference a configured catalog item.
	var known int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM item_settings WHERE name = ?`, p.Item,
	).Scan(&known)
	if err != nil {
		return nil, fmt.Errorf("checking item: %w", err)
	}
	if known == 0 {
		return nil, model.Validationf("unknown item %q", p.Item)
	}

	if !p.AllowDuplicate {
		var existing int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM deposits WHERE user_name = ? AND item = ? AND qty = ?`,
			p.User, p.Item, p.Qty,
		).Scan(&existing)
		if err != nil {
			return nil, fmt.Errorf("checking for duplicates: %w", err)
		}
		if existing > 0 {
			return nil, model.ErrDuplicateDetected
		}
	}

	now := time.Now().UTC()

	// Upsert the user's existence marker.
	_, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (name, created_at) VALUES (?, ?)`,
		p.User, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user record: %w", err)
	}

	dep := &model.Deposit{
		ID:        uuid.NewString(),
		User:      p.User,
		Item:      p.Item,
		Qty:       p.Qty,
		Value:     p.ValuePerUnit,
		CreatedAt: now,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO deposits (id, user_name, item, qty, value, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		dep.ID, dep.User, dep.Item, dep.Qty, dep.Value, dep.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting deposit: %w", err)
	}

	total := dep.CurrentValue()
	if p.Instant {
		err = addToAdminTotals(ctx, tx, p.Actor, 0, total)
	} else {
		err = addToAdminTotals(ctx, tx, p.Actor, total, 0)
	}
	if err != nil {
		return nil, err
	}

	details := fmt.Sprintf("%s: %d x %s (value %g, instant=%t)", dep.User, dep.Qty, dep.Item, total, p.Instant)
	if _, err := appendAudit(ctx, tx, p.Actor, model.ActionDepositAdd, details, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing deposit: %w", err)
	}
	return dep, nil
}

// DeleteDeposit removes one deposit by id. A missing id is a success, not
// an error; the attempt is audited either way.
func DeleteDeposit(ctx context.Context, db *sql.DB, actor, user, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM deposits WHERE id = ? AND user_name = ?`, id, user,
	)
	if err != nil {
		return fmt.Errorf("deleting deposit: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting deleted deposits: %w", err)
	}

	details := fmt.Sprintf("user %s deposit %s (removed=%d)", user, id, removed)
	if _, err := appendAudit(ctx, tx, actor, model.ActionDepositDelete, details, time.Now().UTC()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing deposit delete: %w", err)
	}
	return nil
}

// GetDeposit returns one deposit by id, or nil if absent.
func GetDeposit(ctx context.Context, db *sql.DB, id string) (*model.Deposit, error) {
	dep := &model.Deposit{}
	err := db.QueryRowContext(ctx,
		`SELECT id, user_name, item, qty, value, created_at FROM deposits WHERE id = ?`, id,
	).Scan(&dep.ID, &dep.User, &dep.Item, &dep.Qty, &dep.Value, &dep.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting deposit: %w", err)
	}
	return dep, nil
}

// ListDeposits returns one user's deposits in insertion order.
func ListDeposits(ctx context.Context, db *sql.DB, user string) ([]model.Deposit, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_name, item, qty, value, created_at
		 FROM deposits WHERE user_name = ?
		 ORDER BY created_at, id`, user,
	)
	if err != nil {
		return nil, fmt.Errorf("listing deposits: %w", err)
	}
	defer rows.Close()

	return scanDeposits(rows)
}

// ListAllDeposits returns every user's deposits in insertion order. This is
// the aggregate dashboard fan-out; callers should go through DepositCache
// rather than hitting it per request.
func ListAllDeposits(ctx context.Context, db *sql.DB) ([]model.Deposit, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_name, item, qty, value, created_at
		 FROM deposits ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing all deposits: %w", err)
	}
	defer rows.Close()

	return scanDeposits(rows)
}

// ListDepositsRange returns deposits inside [from, to], optionally limited
// to one user. Zero times mean unbounded.
func ListDepositsRange(ctx context.Context, db *sql.DB, user string, from, to time.Time) ([]model.Deposit, error) {
	query := `SELECT id, user_name, item, qty, value, created_at FROM deposits WHERE 1=1`
	var args []any

	if user != "" {
		query += ` AND user_name = ?`
		args = append(args, user)
	}
	if !from.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		query += ` AND created_at <= ?`
		args = append(args, to.UTC())
	}

	query += ` ORDER BY created_at, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing deposits in range: %w", err)
	}
	defer rows.Close()

	return scanDeposits(rows)
}

func scanDeposits(rows *sql.Rows) ([]model.Deposit, error) {
	var deposits []model.Deposit
	for rows.Next() {
		var d model.Deposit
		if err := rows.Scan(&d.ID, &d.User, &d.Item, &d.Qty, &d.Value, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning deposit: %w", err)
		}
		deposits = append(deposits, d)
	}
	return deposits, rows.Err()
}
