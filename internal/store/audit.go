package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/poeconomics/fundbank/internal/model"
)

// AuditFilter narrows audit listings and purges. Zero values match
// everything.
type AuditFilter struct {
	Actor  string
	Action string
	Limit  int
}

// AppendAudit records one admin action. Entries are immutable once written.
func AppendAudit(ctx context.Context, db *sql.DB, actor, action, details string) (*model.AuditEntry, error) {
	return appendAudit(ctx, db, actor, action, details, time.Now().UTC())
}

// appendAudit writes an entry through any DBTX so mutating operations can
// log inside their own transaction.
func appendAudit(ctx context.Context, q DBTX, actor, action, details string, at time.Time) (*model.AuditEntry, error) {
	entry := &model.AuditEntry{
		ID:        uuid.NewString(),
		Actor:     actor,
		Action:    action,
		Details:   details,
		CreatedAt: at,
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO audit_log (id, actor, action, details, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Actor, entry.Action, entry.Details, entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("appending audit entry: %w", err)
	}
	return entry, nil
}

// ListAuditEntries returns entries matching the filter, newest first.
func ListAuditEntries(ctx context.Context, db *sql.DB, f AuditFilter) ([]model.AuditEntry, error) {
	query := `SELECT id, actor, action, details, created_at FROM audit_log WHERE 1=1`
	var args []any

	if f.Actor != "" {
		query += ` AND actor = ?`
		args = append(args, f.Actor)
	}
	if f.Action != "" {
		query += ` AND action = ?`
		args = append(args, f.Action)
	}

	query += ` ORDER BY created_at DESC, id`

	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var details sql.NullString
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.Details = details.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PurgeAuditEntries is the bulk "logs reset" action: it deletes the
// filtered subset and records the purge itself as a new entry, in one
// transaction. Returns the number of entries removed.
func PurgeAuditEntries(ctx context.Context, db *sql.DB, actor string, f AuditFilter) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `DELETE FROM audit_log WHERE 1=1`
	var args []any
	if f.Actor != "" {
		query += ` AND actor = ?`
		args = append(args, f.Actor)
	}
	if f.Action != "" {
		query += ` AND action = ?`
		args = append(args, f.Action)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purging audit entries: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged entries: %w", err)
	}

	details := fmt.Sprintf("purged %d entries (actor=%q action=%q)", removed, f.Actor, f.Action)
	if _, err := appendAudit(ctx, tx, actor, model.ActionAuditPurge, details, time.Now().UTC()); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing purge: %w", err)
	}
	return removed, nil
}
