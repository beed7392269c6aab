package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/FloatTech/ttl"

	"github.com/poeconomics/fundbank/internal/model"
)

// DefaultCacheTTL bounds how stale the aggregate deposit view may be.
const DefaultCacheTTL = 30 * time.Second

const allDepositsKey = "all"

// DepositCache fronts the all-users deposit fan-out with a short TTL so
// aggregate dashboards do not rescan the ledger on every request. Mutating
// callers invalidate it after a write.
type DepositCache struct {
	entries *ttl.Cache[string, []model.Deposit]
}

// NewDepositCache creates a cache with the given time-to-live.
func NewDepositCache(d time.Duration) *DepositCache {
	return &DepositCache{entries: ttl.NewCache[string, []model.Deposit](d)}
}

// ListAll returns the cached aggregate deposit list, refreshing it from the
// ledger when the entry has expired.
func (c *DepositCache) ListAll(ctx context.Context, db *sql.DB) ([]model.Deposit, error) {
	if cached := c.entries.Get(allDepositsKey); cached != nil {
		return cached, nil
	}

	deposits, err := ListAllDeposits(ctx, db)
	if err != nil {
		return nil, err
	}
	if deposits == nil {
		deposits = []model.Deposit{}
	}

	c.entries.Set(allDepositsKey, deposits)
	return deposits, nil
}

// Invalidate drops the cached aggregate so the next read sees fresh data.
func (c *DepositCache) Invalidate() {
	c.entries.Delete(allDepositsKey)
}
