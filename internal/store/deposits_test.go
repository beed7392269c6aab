package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/poeconomics/fundbank/internal/db"
	"github.com/poeconomics/fundbank/internal/model"
)

func TestAddDeposit(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seedSettings(t, database)

	dep, err := AddDeposit(ctx, database, AddDepositParams{
		User: "alice", Item: "Waystone EXP", Qty: 250, ValuePerUnit: 0.1, Actor: "Admin",
	})
	if err != nil {
		t.Fatalf("AddDeposit: %v", err)
	}
	if dep.ID == "" {
		t.Error("expected generated deposit id")
	}
	if dep.CurrentValue() != 25.0 {
		t.Errorf("expected current value 25.0, got %v", dep.CurrentValue())
	}

	deposits, err := ListDeposits(ctx, database, "alice")
	if err != nil {
		t.Fatalf("ListDeposits: %v", err)
	}
	if len(deposits) != 1 {
		t.Fatalf("expected 1 deposit, got %d", len(deposits))
	}

	// The user existence marker is created on first deposit.
	user, err := ResolveUser(ctx, database, "alice")
	if err != nil || user != "alice" {
		t.Errorf("expected alice to exist, got %q err=%v", user, err)
	}

	// The actor's totals reflect the deposit.
	totals, _ := GetAdminTotals(ctx, database, "Admin")
	if totals.TotalNormal != 25.0 || totals.TotalInstant != 0 {
		t.Errorf("expected totals 25.0/0, got %v/%v", totals.TotalNormal, totals.TotalInstant)
	}
}

func TestAddDepositValidation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seedSettings(t, database)

	cases := []struct {
		name   string
		params AddDepositParams
	}{
		{"empty user", AddDepositParams{Item: "Waystone EXP", Qty: 1, Actor: "Admin"}},
		{"zero qty", AddDepositParams{User: "alice", Item: "Waystone EXP", Qty: 0, Actor: "Admin"}},
		{"negative qty", AddDepositParams{User: "alice", Item: "Waystone EXP", Qty: -3, Actor: "Admin"}},
		{"negative value", AddDepositParams{User: "alice", Item: "Waystone EXP", Qty: 1, ValuePerUnit: -0.1, Actor: "Admin"}},
		{"unknown item", AddDepositParams{User: "alice", Item: "Mirror", Qty: 1, Actor: "Admin"}},
	}

	for _, tc := range cases {
		if _, err := AddDeposit(ctx, database, tc.params); !model.IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}

	// Nothing was written by the rejected calls.
	deposits, _ := ListAllDeposits(ctx, database)
	if len(deposits) != 0 {
		t.Errorf("expected no deposits, got %d", len(deposits))
	}
}

func TestAddDepositDuplicateDetected(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seedSettings(t, database)

	params := AddDepositParams{User: "alice", Item: "Waystone EXP", Qty: 250, ValuePerUnit: 0.1, Actor: "Admin"}

	if _, err := AddDeposit(ctx, database, params); err != nil {
		t.Fatalf("first AddDeposit: %v", err)
	}

	_, err := AddDeposit(ctx, database, params)
	if !errors.Is(err, model.ErrDuplicateDetected) {
		t.Fatalf("expected ErrDuplicateDetected, got %v", err)
	}

	// Exactly one deposit exists; the collision wrote nothing.
	deposits, _ := ListDeposits(ctx, database, "alice")
	if len(deposits) != 1 {
		t.Errorf("expected 1 deposit, got %d", len(deposits))
	}

	// Totals were not incremented by the rejected call.
	totals, _ := GetAdminTotals(ctx, database, "Admin")
	if totals.TotalNormal != 25.0 {
		t.Errorf("expected totals 25.0, got %v", totals.TotalNormal)
	}
}

func TestAddDepositConcurrentDuplicate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seedSettings(t, database)

	params := AddDepositParams{User: "alice", Item: "Waystone EXP", Qty: 250, ValuePerUnit: 0.1, Actor: "Admin"}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := AddDeposit(ctx, database, params)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	// The check and the insert share a transaction, so exactly one of the
	// two racing submissions may land.
	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, model.ErrDuplicateDetected):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != 1 {
		t.Errorf("expected 1 success and 1 duplicate, got %d/%d", ok, dup)
	}

	deposits, _ := ListDeposits(ctx, database, "alice")
	if len(deposits) != 1 {
		t.Errorf("expected exactly 1 deposit, got %d", len(deposits))
	}
	totals, _ := GetAdminTotals(ctx, database, "Admin")
	if totals.TotalNormal != 25.0 {
		t.Errorf("expected totals 25.0, got %v", totals.TotalNormal)
	}
}

func TestAddDepositAllowDuplicate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seedSettings(t, database)

	params := AddDepositParams{User: "alice", Item: "Waystone EXP", Qty: 250, ValuePerUnit: 0.1, Actor: "Admin"}

	if _, err := AddDeposit(ctx, database, params); err != nil {
		t.Fatalf("first AddDeposit: %v", err)
	}

	params.AllowDuplicate = true
	if _, err := AddDeposit(ctx, database, params); err != nil {
		t.Fatalf("override AddDeposit: %v", err)
	}

	deposits, _ := ListDeposits(ctx, database, "alice")
	if len(deposits) != 2 {
		t.Errorf("expected 2 deposits with override, got %d", len(deposits))
	}
}

func TestAddDepositInstant(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seedSettings(t, database)

	_, err := AddDeposit(ctx, database, AddDepositParams{
		User: "bob", Item: "Waystone EXP", Qty: 100, ValuePerUnit: 0.08, Instant: true, Actor: "Admin",
	})
	if err != nil {
		t.Fatalf("AddDeposit: %v", err)
	}

	totals, _ := GetAdminTotals(ctx, database, "Admin")
	if totals.TotalNormal != 0 || totals.TotalInstant != 8.0 {
		t.Errorf("expected totals 0/8.0, got %v/%v", totals.TotalNormal, totals.TotalInstant)
	}
}

func TestDeleteDepositIdempotent(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seedSettings(t, database)

	dep, err := AddDeposit(ctx, database, AddDepositParams{
		User: "alice", Item: "Waystone EXP", Qty: 10, ValuePerUnit: 0.1, Actor: "Admin",
	})
	if err != nil {
		t.Fatalf("AddDeposit: %v", err)
	}

	if err := DeleteDeposit(ctx, database, "Admin", "alice", dep.ID); err != nil {
		t.Fatalf("DeleteDeposit: %v", err)
	}

	// Deleting the same id again, or a made-up id, succeeds without error.
	if err := DeleteDeposit(ctx, database, "Admin", "alice", dep.ID); err != nil {
		t.Errorf("repeat delete should be a no-op success, got %v", err)
	}
	if err := DeleteDeposit(ctx, database, "Admin", "alice", "no-such-id"); err != nil {
		t.Errorf("delete of unknown id should succeed, got %v", err)
	}

	deposits, _ := ListDeposits(ctx, database, "alice")
	if len(deposits) != 0 {
		t.Errorf("expected 0 deposits, got %d", len(deposits))
	}

	// Every attempt was audited.
	entries, _ := ListAuditEntries(ctx, database, AuditFilter{Action: model.ActionDepositDelete})
	if len(entries) != 3 {
		t.Errorf("expected 3 delete audit entries, got %d", len(entries))
	}
}

func TestListDepositsInsertionOrder(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seedSettings(t, database)

	items := []struct {
		item string
		qty  int
	}{
		{"Waystone EXP", 10},
		{"Breachstone", 5},
		{"Waystone EXP", 20},
	}
	for _, it := range items {
		if _, err := AddDeposit(ctx, database, AddDepositParams{
			User: "alice", Item: it.item, Qty: it.qty, ValuePerUnit: 0.1, Actor: "Admin",
		}); err != nil {
			t.Fatalf("AddDeposit %v: %v", it, err)
		}
	}

	deposits, err := ListDeposits(ctx, database, "alice")
	if err != nil {
		t.Fatalf("ListDeposits: %v", err)
	}
	if len(deposits) != 3 {
		t.Fatalf("expected 3 deposits, got %d", len(deposits))
	}
	for i, it := range items {
		if deposits[i].Item != it.item || deposits[i].Qty != it.qty {
			t.Errorf("deposit %d out of order: %+v", i, deposits[i])
		}
	}
}
