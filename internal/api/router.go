package api

import (
	"database/sql"
	"net/http"

	"github.com/poeconomics/fundbank/internal/model"
	"github.com/poeconomics/fundbank/internal/store"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	cache := store.NewDepositCache(store.DefaultCacheTTL)

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	adminsHandler := &AdminsHandler{DB: db}
	settingsHandler := &SettingsHandler{DB: db}
	depositsHandler := &DepositsHandler{DB: db, Cache: cache}
	exportHandler := &ExportHandler{DB: db, Cache: cache}
	pendingHandler := &PendingHandler{DB: db, Cache: cache}
	totalsHandler := &TotalsHandler{DB: db}
	auditHandler := &AuditHandler{DB: db}
	usersHandler := &UsersHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db}
	quoteHandler := &QuoteHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Admin accounts (admin only).
	mux.Handle("GET /api/admins", authMW(requireAdmin(http.HandlerFunc(adminsHandler.List))))
	mux.Handle("POST /api/admins", authMW(requireAdmin(http.HandlerFunc(adminsHandler.Create))))
	mux.Handle("PUT /api/admins/{id}", authMW(requireAdmin(http.HandlerFunc(adminsHandler.Update))))
	mux.Handle("PUT /api/admins/{id}/password", authMW(requireAdmin(http.HandlerFunc(adminsHandler.ResetPassword))))
	mux.Handle("DELETE /api/admins/{id}", authMW(requireAdmin(http.HandlerFunc(adminsHandler.Delete))))

	// Exchange-rate configuration: read (all roles), write (admin).
	mux.Handle("GET /api/settings", authMW(http.HandlerFunc(settingsHandler.Get)))
	mux.Handle("PUT /api/settings", authMW(requireAdmin(http.HandlerFunc(settingsHandler.Put))))

	// Ledger (all roles).
	mux.Handle("GET /api/deposits", authMW(http.HandlerFunc(depositsHandler.List)))
	mux.Handle("POST /api/deposits", authMW(http.HandlerFunc(depositsHandler.Create)))
	mux.Handle("POST /api/deposits/bulk", authMW(http.HandlerFunc(exportHandler.BulkUpload)))
	mux.Handle("GET /api/deposits/export", authMW(http.HandlerFunc(exportHandler.Export)))

	// Community users and their ledgers.
	mux.Handle("GET /api/users", authMW(http.HandlerFunc(usersHandler.List)))
	mux.Handle("GET /api/users/{name}/deposits", authMW(http.HandlerFunc(depositsHandler.UserDeposits)))
	mux.Handle("DELETE /api/users/{name}/deposits/{id}", authMW(http.HandlerFunc(depositsHandler.Delete)))
	mux.Handle("POST /api/users/{name}/aliases", authMW(http.HandlerFunc(usersHandler.LinkAlias)))

	// Duplicate adjudication (all roles).
	mux.Handle("GET /api/pending", authMW(http.HandlerFunc(pendingHandler.List)))
	mux.Handle("POST /api/pending/{id}/confirm", authMW(http.HandlerFunc(pendingHandler.Confirm)))
	mux.Handle("POST /api/pending/{id}/decline", authMW(http.HandlerFunc(pendingHandler.Decline)))

	// Totals: read (all roles), reset (admin).
	mux.Handle("GET /api/totals", authMW(http.HandlerFunc(totalsHandler.List)))
	mux.Handle("GET /api/totals/{admin}", authMW(http.HandlerFunc(totalsHandler.Get)))
	mux.Handle("POST /api/totals/{admin}/reset", authMW(requireAdmin(http.HandlerFunc(totalsHandler.Reset))))

	// Audit log: read (all roles), purge (admin).
	mux.Handle("GET /api/audit", authMW(http.HandlerFunc(auditHandler.List)))
	mux.Handle("DELETE /api/audit", authMW(requireAdmin(http.HandlerFunc(auditHandler.Purge))))

	// Item icons: read (all roles), upload (admin).
	mux.Handle("GET /api/items/{name}/icon", authMW(http.HandlerFunc(itemsHandler.GetIcon)))
	mux.Handle("PUT /api/items/{name}/icon", authMW(requireAdmin(http.HandlerFunc(itemsHandler.UploadIcon))))

	// What-if estimates (all roles).
	mux.Handle("POST /api/quote", authMW(http.HandlerFunc(quoteHandler.Quote)))

	return mux
}
