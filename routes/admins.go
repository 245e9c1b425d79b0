package routes

import (
	"net/http"
	"time"

	"project/controllers/admins"
	"project/middleware"

	"github.com/gorilla/mux"
)

func SetAdminRoutes(api *mux.Router) {
	// Admin login: 5 attempts per IP per minute.
	adminLoginLimiter := middleware.NewIPRateLimiter(5, time.Minute)

	api.Handle("/admin/login", adminLoginLimiter.Middleware(http.HandlerFunc(admins.Login))).Methods(http.MethodPost)

	adminRouter := api.PathPrefix("/admin").Subrouter()
	adminRouter.Use(middleware.AdminAuthMiddleware)

	// Ticket economy management. Grants and revocations flow through the
	// ledger so reconcile always balances.
	adminRouter.Handle("/tickets/grant", http.HandlerFunc(admins.GrantTicketsHandler)).Methods(http.MethodPost)
	adminRouter.Handle("/tickets/revoke", http.HandlerFunc(admins.RevokeTicketsHandler)).Methods(http.MethodPost)
	adminRouter.Handle("/ledger/reconcile", http.HandlerFunc(admins.ReconcileHandler)).Methods(http.MethodGet)
}
