package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SetItemIcon stores a processed icon for a catalog item. The item must
// already be configured.
func SetItemIcon(ctx context.Context, db *sql.DB, name string, data []byte, mime string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE item_settings SET icon = ?, icon_mime = ?, updated_at = ? WHERE name = ?`,
		data, mime, time.Now().UTC(), name,
	)
	if err != nil {
		return fmt.Errorf("storing item icon: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("checking icon update: %w", err)
	} else if n == 0 {
		return fmt.Errorf("unknown item %q", name)
	}
	return nil
}

// GetItemIcon returns an item's icon bytes and MIME type, or nil data when
// the item has no icon.
func GetItemIcon(ctx context.Context, db *sql.DB, name string) ([]byte, string, error) {
	var data []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT icon, icon_mime FROM item_settings WHERE name = ?`, name,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("reading item icon: %w", err)
	}
	return data, mime.String, nil
}
