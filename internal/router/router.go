package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/nepabhay/account-service/internal/api/account"
	"github.com/nepabhay/account-service/internal/api/auth"
	"github.com/nepabhay/account-service/internal/api/sweep"
)

// Config contains the handlers and middleware the router wires together.
type Config struct {
	AuthHandler            auth.Handler
	AccountHandler         account.Handler
	SweepHandler           sweep.Handler
	AuthenticateMiddleware func(http.Handler) http.Handler
	RequireAdmin           func(http.Handler) http.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are applied before
// mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000", "https://nepabhay.com"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {

		// Public auth routes
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/check", cfg.AuthHandler.Check)
			r.Post("/auth/refresh", cfg.AuthHandler.RefreshSession)
			r.Get("/auth/{provider}", cfg.AuthHandler.SocialLogin)
			r.Get("/auth/{provider}/callback", cfg.AuthHandler.SocialCallback)
		})

		// Routes requiring a valid session
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Post("/auth/logout", cfg.AuthHandler.Logout)
			r.Put("/auth/password", cfg.AuthHandler.ChangePassword)

			r.Get("/account", cfg.AccountHandler.GetOwnAccount)
			r.Delete("/account", cfg.AccountHandler.DeleteOwnAccount)
			r.Post("/account/deactivate", cfg.AccountHandler.Deactivate)
			r.Post("/account/reactivate", cfg.AccountHandler.Reactivate)
			r.Post("/account/delete-request", cfg.AccountHandler.RequestDeletion)
			r.Post("/account/delete-cancel", cfg.AccountHandler.CancelDeletion)
		})

		// Administrator routes
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)
			r.Use(cfg.RequireAdmin)

			r.Get("/admin/accounts", cfg.AccountHandler.ListAccounts)
			r.Delete("/admin/accounts/{accountID}", cfg.AccountHandler.DeleteAccount)
			r.Post("/admin/accounts/{accountID}/block", cfg.AccountHandler.BlockAccount)
			r.Post("/admin/accounts/{accountID}/unblock", cfg.AccountHandler.UnblockAccount)
			r.Post("/admin/accounts/{accountID}/activate", cfg.AccountHandler.ActivateAccount)
			r.Post("/admin/accounts/{accountID}/deactivate", cfg.AccountHandler.DeactivateAccount)
			r.Post("/admin/accounts/{accountID}/delete-request", cfg.AccountHandler.RequestDeletionForAccount)
			r.Post("/admin/accounts/{accountID}/verify-email", cfg.AccountHandler.VerifyEmail)
		})

		// Operator-only, API-key gated
		r.Post("/internal/sweep", cfg.SweepHandler.TriggerSweep)
	})

	return r
}
