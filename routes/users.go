package routes

import (
	"net/http"
	"time"

	"project/controllers/auth"
	"project/controllers/users"
	"project/lobby"
	"project/middleware"

	"github.com/gorilla/mux"
)

// UsersRoutes registers every player-facing route on the given subrouter.
func UsersRoutes(api *mux.Router, mgr *lobby.Manager) {
	// Login/register limiter: 60 per IP per 5 minutes.
	loginLimiter := middleware.NewIPRateLimiter(60, 5*time.Minute)
	// Session limiter: sliding window per user, 120 read / 60 write per minute.
	userLimiter := middleware.NewUserRateLimiter(120, 60, 60)
	// History and catalog are polled by the client, keep them loose.
	pollLimiter := middleware.NewIPRateLimiter(500, 5*time.Minute)

	lobbies := users.NewLobbyController(mgr)

	// Register & Login
	api.Handle("/register", loginLimiter.Middleware(http.HandlerFunc(auth.RegisterHandler))).Methods(http.MethodPost)
	api.Handle("/login", loginLimiter.Middleware(http.HandlerFunc(auth.LoginHandler))).Methods(http.MethodPost)
	api.Handle("/refresh", loginLimiter.Middleware(http.HandlerFunc(auth.RefreshHandler))).Methods(http.MethodPost)
	api.Handle("/logout", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(auth.LogoutHandler)))).Methods(http.MethodPost)

	// User info & wallet
	api.Handle("/users/info", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.InfoHandler)))).Methods(http.MethodGet)
	api.Handle("/users/wallet", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.WalletHandler)))).Methods(http.MethodGet)
	api.Handle("/users/wallet/ledger", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.WalletLedgerHandler)))).Methods(http.MethodGet)

	// Lobby lifecycle
	api.Handle("/lobbies/join", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(lobbies.Join)))).Methods(http.MethodPost)
	api.Handle("/lobbies/active", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(lobbies.Active)))).Methods(http.MethodGet)
	api.Handle("/lobbies/{id:[0-9]+}", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(lobbies.State)))).Methods(http.MethodGet)
	api.Handle("/lobbies/{id:[0-9]+}/number", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(lobbies.ChooseNumber)))).Methods(http.MethodPost)

	// Archived games and the tier catalog (public reads)
	api.Handle("/games", pollLimiter.Middleware(http.HandlerFunc(users.GameHistoryListHandler))).Methods(http.MethodGet)
	api.Handle("/games/{number:[0-9]+}", pollLimiter.Middleware(http.HandlerFunc(users.GameHistoryDetailHandler))).Methods(http.MethodGet)
	api.Handle("/tiers", pollLimiter.Middleware(http.HandlerFunc(users.TierCatalogHandler))).Methods(http.MethodGet)
}
