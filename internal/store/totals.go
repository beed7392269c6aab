package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/poeconomics/fundbank/internal/model"
)

// GetAdminTotals returns the cumulative totals for one admin, defaulting to
// zeros for an admin that has never deposited.
func GetAdminTotals(ctx context.Context, db *sql.DB, admin string) (*model.AdminTotals, error) {
	t := &model.AdminTotals{Admin: admin}
	err := db.QueryRowContext(ctx,
		`SELECT total_normal, total_instant FROM admin_totals WHERE admin = ?`, admin,
	).Scan(&t.TotalNormal, &t.TotalInstant)
	if err == sql.ErrNoRows {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading admin totals: %w", err)
	}
	return t, nil
}

// ListAdminTotals returns every admin's totals for reconciliation.
func ListAdminTotals(ctx context.Context, db *sql.DB) ([]model.AdminTotals, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT admin, total_normal, total_instant FROM admin_totals ORDER BY admin`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing admin totals: %w", err)
	}
	defer rows.Close()

	var totals []model.AdminTotals
	for rows.Next() {
		var t model.AdminTotals
		if err := rows.Scan(&t.Admin, &t.TotalNormal, &t.TotalInstant); err != nil {
			return nil, fmt.Errorf("scanning admin totals: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// AddToAdminTotals increments an admin's counters in a single atomic upsert.
// There is deliberately no read-modify-write here: concurrent deposits from
// the same admin must all be reflected.
func AddToAdminTotals(ctx context.Context, db *sql.DB, admin string, normalDelta, instantDelta float64) error {
	return addToAdminTotals(ctx, db, admin, normalDelta, instantDelta)
}

func addToAdminTotals(ctx context.Context, q DBTX, admin string, normalDelta, instantDelta float64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO admin_totals (admin, total_normal, total_instant) VALUES (?, ?, ?)
		 ON CONFLICT (admin) DO UPDATE SET
		     total_normal = total_normal + excluded.total_normal,
		     total_instant = total_instant + excluded.total_instant`,
		admin, normalDelta, instantDelta,
	)
	if err != nil {
		return fmt.Errorf("updating admin totals: %w", err)
	}
	return nil
}

// ResetAdminTotals zeroes an admin's counters. The prior values are written
// to the audit log first, in the same transaction, so they stay recoverable;
// the reset itself is irreversible.
func ResetAdminTotals(ctx context.Context, db *sql.DB, actor, admin string) (*model.AdminTotals, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	prior := &model.AdminTotals{Admin: admin}
	err = tx.QueryRowContext(ctx,
		`SELECT total_normal, total_instant FROM admin_totals WHERE admin = ?`, admin,
	).Scan(&prior.TotalNormal, &prior.TotalInstant)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("reading admin totals: %w", err)
	}

	details := fmt.Sprintf("reset totals for %s: normal=%g instant=%g", admin, prior.TotalNormal, prior.TotalInstant)
	if _, err := appendAudit(ctx, tx, actor, model.ActionTotalsReset, details, time.Now().UTC()); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO admin_totals (admin, total_normal, total_instant) VALUES (?, 0, 0)
		 ON CONFLICT (admin) DO UPDATE SET total_normal = 0, total_instant = 0`,
		admin,
	)
	if err != nil {
		return nil, fmt.Errorf("zeroing admin totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing totals reset: %w", err)
	}
	return prior, nil
}
