package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/poeconomics/fundbank/internal/db"
	"github.com/poeconomics/fundbank/internal/model"
	"github.com/poeconomics/fundbank/internal/store"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Create admin account.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	store.CreateAdmin(ctx, database, "Admin", string(hash), model.RoleAdmin)

	// Get token.
	body, _ := json.Marshal(map[string]string{"username": "Admin", "password": "password"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	token := loginResp["token"]
	if token == "" {
		t.Fatal("empty token from login")
	}

	return server, token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func saveTestSettings(t *testing.T, server *httptest.Server, token string) {
	t.Helper()
	req, _ := authRequest("PUT", server.URL+"/api/settings", token, model.Settings{
		Items: map[string]model.ItemSetting{
			"Waystone EXP": {Target: 100, DivineValue: 10.0},
		},
		BankBuyPct: 80,
	})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("saving settings: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("saving settings: %d", resp.StatusCode)
	}
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "Admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSettingsFlow(t *testing.T) {
	server, token := setupTestServer(t)
	saveTestSettings(t, server, token)

	req, _ := authRequest("GET", server.URL+"/api/settings", token, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var settings model.Settings
	json.NewDecoder(resp.Body).Decode(&settings)
	resp.Body.Close()

	if settings.BankBuyPct != 80 {
		t.Errorf("expected bank buy pct 80, got %d", settings.BankBuyPct)
	}
	if settings.Items["Waystone EXP"].Target != 100 {
		t.Errorf("unexpected item settings: %+v", settings.Items)
	}
}

func TestDepositFlow(t *testing.T) {
	server, token := setupTestServer(t)
	saveTestSettings(t, server, token)

	// First deposit lands.
	req, _ := authRequest("POST", server.URL+"/api/deposits", token, map[string]any{
		"user": "alice", "item": "Waystone EXP", "qty": 250,
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var dep model.Deposit
	json.NewDecoder(resp.Body).Decode(&dep)
	resp.Body.Close()
	if dep.Value != 0.1 {
		t.Errorf("expected unit value 0.1, got %v", dep.Value)
	}

	// The identical submission is parked for review.
	req, _ = authRequest("POST", server.URL+"/api/deposits", token, map[string]any{
		"user": "alice", "item": "Waystone EXP", "qty": 250,
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	var dup duplicateResponse
	json.NewDecoder(resp.Body).Decode(&dup)
	resp.Body.Close()
	if dup.PendingID == "" {
		t.Fatal("expected a pending id in the 409 response")
	}

	// Confirming re-enters the deposit.
	req, _ = authRequest("POST", server.URL+"/api/pending/"+dup.PendingID+"/confirm", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 confirming, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The user's ledger holds both deposits and a payout split.
	req, _ = authRequest("GET", server.URL+"/api/users/alice/deposits", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var ledger userDepositsResponse
	json.NewDecoder(resp.Body).Decode(&ledger)
	resp.Body.Close()

	if len(ledger.Deposits) != 2 {
		t.Errorf("expected 2 deposits, got %d", len(ledger.Deposits))
	}
	if ledger.Total != 50.0 {
		t.Errorf("expected total 50.0, got %v", ledger.Total)
	}
	if ledger.PayoutFee != 5.0 || ledger.PayoutNet != 45.0 {
		t.Errorf("expected payout 5.0/45.0, got %v/%v", ledger.PayoutFee, ledger.PayoutNet)
	}
}

func TestTotalsEndpoint(t *testing.T) {
	server, token := setupTestServer(t)
	saveTestSettings(t, server, token)

	req, _ := authRequest("POST", server.URL+"/api/deposits", token, map[string]any{
		"user": "bob", "item": "Waystone EXP", "qty": 100,
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/totals/Admin", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	var totals model.AdminTotals
	json.NewDecoder(resp.Body).Decode(&totals)
	resp.Body.Close()

	if totals.TotalNormal != 10.0 {
		t.Errorf("expected normal total 10.0, got %v", totals.TotalNormal)
	}
}

func TestQuoteEndpoint(t *testing.T) {
	server, token := setupTestServer(t)
	saveTestSettings(t, server, token)

	req, _ := authRequest("POST", server.URL+"/api/quote", token, map[string]any{
		"lines": []map[string]any{{"item": "Waystone EXP", "qty": 250}},
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var quote quoteResponse
	json.NewDecoder(resp.Body).Decode(&quote)
	resp.Body.Close()

	if quote.Total != 25.0 {
		t.Errorf("expected total 25.0, got %v", quote.Total)
	}
	if quote.PayoutFee != 2.5 || quote.PayoutNet != 22.5 {
		t.Errorf("expected payout 2.5/22.5, got %v/%v", quote.PayoutFee, quote.PayoutNet)
	}

	// Nothing touched the ledger.
	req, _ = authRequest("GET", server.URL+"/api/deposits", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	var deposits []model.Deposit
	json.NewDecoder(resp.Body).Decode(&deposits)
	resp.Body.Close()
	if len(deposits) != 0 {
		t.Errorf("quote wrote %d deposits", len(deposits))
	}
}

func TestListReadsDegradeWhenStoreBroken(t *testing.T) {
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	store.CreateAdmin(ctx, database, "Admin", string(hash), model.RoleAdmin)

	body, _ := json.Marshal(map[string]string{"username": "Admin", "password": "password"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	resp.Body.Close()
	token := loginResp["token"]

	// Break every list-backing table; auth tables stay intact so requests
	// still reach the handlers.
	for _, table := range []string{"deposits", "pending_duplicates", "admin_totals", "aliases", "users", "item_settings"} {
		if _, err := database.ExecContext(ctx, "DROP TABLE "+table); err != nil {
			t.Fatalf("dropping %s: %v", table, err)
		}
	}

	// Dashboard reads degrade to empty lists or defaults instead of failing.
	for _, path := range []string{"/api/deposits", "/api/pending", "/api/totals", "/api/users", "/api/settings"} {
		req, _ := authRequest("GET", server.URL+path, token, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: expected 200 with store broken, got %d", path, resp.StatusCode)
		}
		resp.Body.Close()
	}

	// Writes still fail loudly.
	req, _ := authRequest("POST", server.URL+"/api/deposits", token, map[string]any{
		"user": "alice", "item": "Waystone EXP", "qty": 1,
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		t.Errorf("expected write to fail with store broken, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnauthenticatedAccess(t *testing.T) {
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	resp, _ := http.Get(server.URL + "/api/deposits")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	server, adminToken := setupTestServer(t)

	// Create a manager and log in as them.
	req, _ := authRequest("POST", server.URL+"/api/admins", adminToken, map[string]string{
		"username": "helper", "password": "password", "role": model.RoleManager,
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating manager, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	body, _ := json.Marshal(map[string]string{"username": "helper", "password": "password"})
	resp, _ = http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	resp.Body.Close()
	managerToken := loginResp["token"]

	// Managers cannot rewrite the exchange rates.
	req, _ = authRequest("PUT", server.URL+"/api/settings", managerToken, model.Settings{
		Items: map[string]model.ItemSetting{}, BankBuyPct: 50,
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for manager settings write, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// But they can read them.
	req, _ = authRequest("GET", server.URL+"/api/settings", managerToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for manager settings read, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	server, token := setupTestServer(t)

	req, _ := authRequest("POST", server.URL+"/api/auth/logout", token, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for logout, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/deposits", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
