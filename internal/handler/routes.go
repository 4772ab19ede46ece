package handler

import (
	"net/http"

	"financeplanner/internal/account"
	"financeplanner/internal/config"
	"financeplanner/internal/middleware"
	"financeplanner/internal/tenancy"
	"financeplanner/internal/transaction"
)

// Deps are the engines and collaborators the routes are served from.
type Deps struct {
	Auth         middleware.Authenticator
	Tenants      *tenancy.Manager
	Accounts     *account.Manager
	Transactions *transaction.Manager
	DB           HealthChecker
}

// RegisterRoutes registers all HTTP routes with the provided mux.
//
// /api/v1/tenants (list and create) needs only a verified identity; every
// other /api/v1 route needs a token bound to a tenant the caller belongs to.
func RegisterRoutes(mux *http.ServeMux, cfg *config.Config, deps Deps) {
	mux.HandleFunc("GET /health", HealthCheck)
	mux.HandleFunc("GET /api/v1/status", statusHandler(cfg, deps.DB))

	identity := middleware.RequireIdentity(deps.Auth)
	scoped := middleware.RequireTenant(deps.Auth)

	tenants := NewTenantsHandler(deps.Tenants)
	mux.Handle("GET /api/v1/tenants", identity(http.HandlerFunc(tenants.ListMine)))
	mux.Handle("POST /api/v1/tenants", identity(http.HandlerFunc(tenants.Create)))
	mux.Handle("GET /api/v1/tenants/me", scoped(http.HandlerFunc(tenants.GetCurrent)))
	mux.Handle("PATCH /api/v1/tenants/me", scoped(http.HandlerFunc(tenants.Update)))
	mux.Handle("DELETE /api/v1/tenants/me", scoped(http.HandlerFunc(tenants.Delete)))
	mux.Handle("GET /api/v1/tenants/me/members", scoped(http.HandlerFunc(tenants.ListMembers)))
	mux.Handle("POST /api/v1/tenants/me/members", scoped(http.HandlerFunc(tenants.Invite)))
	mux.Handle("PATCH /api/v1/tenants/me/members/{user_id}/role", scoped(http.HandlerFunc(tenants.UpdateRole)))
	mux.Handle("DELETE /api/v1/tenants/me/members/{user_id}", scoped(http.HandlerFunc(tenants.RemoveMember)))

	accounts := NewAccountsHandler(deps.Accounts)
	mux.Handle("GET /api/v1/accounts", scoped(http.HandlerFunc(accounts.List)))
	mux.Handle("POST /api/v1/accounts", scoped(http.HandlerFunc(accounts.Create)))
	mux.Handle("GET /api/v1/accounts/{id}", scoped(http.HandlerFunc(accounts.Get)))
	mux.Handle("PATCH /api/v1/accounts/{id}", scoped(http.HandlerFunc(accounts.Update)))
	mux.Handle("DELETE /api/v1/accounts/{id}", scoped(http.HandlerFunc(accounts.Delete)))
	mux.Handle("GET /api/v1/accounts/{id}/reconcile", scoped(http.HandlerFunc(accounts.Reconcile)))

	transactions := NewTransactionsHandler(deps.Transactions)
	mux.Handle("GET /api/v1/transactions", scoped(http.HandlerFunc(transactions.List)))
	mux.Handle("POST /api/v1/transactions", scoped(http.HandlerFunc(transactions.Create)))
	mux.Handle("POST /api/v1/transactions/batch", scoped(http.HandlerFunc(transactions.CreateBatch)))
	mux.Handle("GET /api/v1/transactions/{id}", scoped(http.HandlerFunc(transactions.Get)))
	mux.Handle("PATCH /api/v1/transactions/{id}", scoped(http.HandlerFunc(transactions.Update)))
	mux.Handle("DELETE /api/v1/transactions/{id}", scoped(http.HandlerFunc(transactions.Delete)))
}
