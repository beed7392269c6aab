package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/poeconomics/fundbank/internal/model"
)

const bankBuyPctKey = "bank_buy_pct"

// GetSettings returns the full item catalog plus the bank buy percentage.
// A wholly missing configuration yields pure defaults; absence is never an
// error.
func GetSettings(ctx context.Context, db *sql.DB) (*model.Settings, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name, category, target, divine_value FROM item_settings ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("reading item settings: %w", err)
	}
	defer rows.Close()

	items := make(map[string]model.ItemSetting)
	for rows.Next() {
		var s model.ItemSetting
		var category sql.NullString
		if err := rows.Scan(&s.Name, &category, &s.Target, &s.DivineValue); err != nil {
			return nil, fmt.Errorf("scanning item setting: %w", err)
		}
		s.Category = category.String
		items[s.Name] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pct, err := GetBankBuyPct(ctx, db)
	if err != nil {
		return nil, err
	}

	return &model.Settings{Items: items, BankBuyPct: pct}, nil
}

// GetItemSetting looks up one catalog entry. Unknown names yield defaults
// with known=false.
func GetItemSetting(ctx context.Context, db *sql.DB, name string) (model.ItemSetting, bool, error) {
	var s model.ItemSetting
	var category sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT name, category, target, divine_value FROM item_settings WHERE name = ?`, name,
	).Scan(&s.Name, &category, &s.Target, &s.DivineValue)
	if err == sql.ErrNoRows {
		return model.DefaultItemSetting(name), false, nil
	}
	if err != nil {
		return model.ItemSetting{}, false, fmt.Errorf("reading item setting: %w", err)
	}
	s.Category = category.String
	return s, true, nil
}

// GetBankBuyPct returns the instant-sell percentage, defaulting when unset.
func GetBankBuyPct(ctx context.Context, db *sql.DB) (int, error) {
	var raw string
	err := db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, bankBuyPctKey,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return model.DefaultBankBuyPct, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading bank buy pct: %w", err)
	}

	pct, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing bank buy pct %q: %w", raw, err)
	}
	return pct, nil
}

// SaveSettings validates and persists the whole configuration as one unit.
// Any invalid item rejects the entire batch; nothing is partially applied.
// Items are upserted and never deleted. Every successful save is audited
// with the full new configuration.
func SaveSettings(ctx context.Context, db *sql.DB, actor string, s *model.Settings) error {
	if s.BankBuyPct < 0 || s.BankBuyPct > 100 {
		return model.Validationf("bank buy pct must be between 0 and 100, got %d", s.BankBuyPct)
	}
	for name, item := range s.Items {
		if name == "" {
			return model.Validationf("item name must not be empty")
		}
		if item.Target < 1 {
			return model.Validationf("target for %q must be at least 1, got %d", name, item.Target)
		}
		if item.DivineValue < 0 {
			return model.Validationf("divine value for %q must not be negative, got %v", name, item.DivineValue)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for name, item := range s.Items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO item_settings (name, category, target, divine_value, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (name) DO UPDATE SET
			     category = excluded.category,
			     target = excluded.target,
			     divine_value = excluded.divine_value,
			     updated_at = excluded.updated_at`,
			name, item.Category, item.Target, item.DivineValue, now,
		)
		if err != nil {
			return fmt.Errorf("saving item setting %q: %w", name, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		bankBuyPctKey, strconv.Itoa(s.BankBuyPct),
	)
	if err != nil {
		return fmt.Errorf("saving bank buy pct: %w", err)
	}

	if _, err := appendAudit(ctx, tx, actor, model.ActionSettingsSave, describeSettings(s), now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing settings: %w", err)
	}
	return nil
}

// describeSettings renders the full new configuration for the audit trail.
func describeSettings(s *model.Settings) string {
	names := make([]string, 0, len(s.Items))
	for name := range s.Items {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "bank_buy_pct=%d", s.BankBuyPct)
	for _, name := range names {
		item := s.Items[name]
		fmt.Fprintf(&b, "; %s target=%d divine=%g", name, item.Target, item.DivineValue)
	}
	return b.String()
}
