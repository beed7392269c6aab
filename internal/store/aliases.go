package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/poeconomics/fundbank/internal/model"
)

// LinkAlias attaches an alternate in-game name to an existing user so their
// deposits show up under either name. Linking is idempotent and audited.
func LinkAlias(ctx context.Context, db *sql.DB, actor, user, alias string) error {
	if user == "" || alias == "" {
		return model.Validationf("user and alias must not be empty")
	}
	if user == alias {
		return model.Validationf("alias must differ from the username")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE name = ?`, user,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking user: %w", err)
	}
	if exists == 0 {
		return model.Validationf("unknown user %q", user)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO aliases (alias, user_name) VALUES (?, ?)`,
		alias, user,
	)
	if err != nil {
		return fmt.Errorf("linking alias: %w", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		details := fmt.Sprintf("linked alias %q to %s", alias, user)
		if _, err := appendAudit(ctx, tx, actor, model.ActionAliasLink, details, time.Now().UTC()); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing alias link: %w", err)
	}
	return nil
}

// ResolveUser maps a name to the owning username: exact usernames win, then
// the alias table is consulted. An unknown name resolves to "".
func ResolveUser(ctx context.Context, db *sql.DB, name string) (string, error) {
	var user string
	err := db.QueryRowContext(ctx,
		`SELECT name FROM users WHERE name = ?`, name,
	).Scan(&user)
	if err == nil {
		return user, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("resolving user: %w", err)
	}

	err = db.QueryRowContext(ctx,
		`SELECT user_name FROM aliases WHERE alias = ?`, name,
	).Scan(&user)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolving alias: %w", err)
	}
	return user, nil
}

// ListUsernames returns all usernames plus aliases, sorted, for the
// search-suggestion UI.
func ListUsernames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM users UNION SELECT alias FROM aliases`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing usernames: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning username: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Strings(names)
	return names, nil
}
