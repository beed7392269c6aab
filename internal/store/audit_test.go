package store

import (
	"context"
	"testing"

	"github.com/poeconomics/fundbank/internal/db"
	"github.com/poeconomics/fundbank/internal/model"
)

func TestAppendAndListAudit(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := AppendAudit(ctx, database, "Admin", model.ActionDepositAdd, "alice: 10 x Breachstone"); err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}
	if _, err := AppendAudit(ctx, database, "Boris", model.ActionDepositDelete, "removed one"); err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}

	all, err := ListAuditEntries(ctx, database, AuditFilter{})
	if err != nil {
		t.Fatalf("ListAuditEntries: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}

	byActor, _ := ListAuditEntries(ctx, database, AuditFilter{Actor: "Boris"})
	if len(byActor) != 1 || byActor[0].Action != model.ActionDepositDelete {
		t.Errorf("actor filter failed: %+v", byActor)
	}

	byAction, _ := ListAuditEntries(ctx, database, AuditFilter{Action: model.ActionDepositAdd})
	if len(byAction) != 1 || byAction[0].Actor != "Admin" {
		t.Errorf("action filter failed: %+v", byAction)
	}

	limited, _ := ListAuditEntries(ctx, database, AuditFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("expected limit 1, got %d entries", len(limited))
	}
}

func TestPurgeAuditEntries(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := AppendAudit(ctx, database, "Admin", model.ActionDepositAdd, "bulk seed"); err != nil {
			t.Fatalf("AppendAudit: %v", err)
		}
	}
	if _, err := AppendAudit(ctx, database, "Boris", model.ActionSettingsSave, "config"); err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}

	removed, err := PurgeAuditEntries(ctx, database, "Admin", AuditFilter{Actor: "Admin"})
	if err != nil {
		t.Fatalf("PurgeAuditEntries: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 removed, got %d", removed)
	}

	// The unmatched entry survives, and the purge itself left a record.
	remaining, _ := ListAuditEntries(ctx, database, AuditFilter{})
	if len(remaining) != 2 {
		t.Fatalf("expected 2 entries after purge, got %d", len(remaining))
	}
	purges, _ := ListAuditEntries(ctx, database, AuditFilter{Action: model.ActionAuditPurge})
	if len(purges) != 1 {
		t.Errorf("expected 1 purge record, got %d", len(purges))
	}
}
