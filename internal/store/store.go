// Package store implements the persistence operations of the fund bank:
// the settings catalog, the deposit ledger, the duplicate workflow, admin
// accounting, and the audit trail. Compound mutations run inside a single
// SQLite transaction so the ledger, pending queue, totals, and audit log
// can never disagree after a partial failure.
package store

import (
	"context"
	"database/sql"
)

// DBTX is the subset of *sql.DB and *sql.Tx used by helpers that must run
// either standalone or inside a caller's transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
