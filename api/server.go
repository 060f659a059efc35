/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /api/accounts/*   Account lifecycle, balance, history, debits
  /api/webhooks/*   Payment collaborator callbacks
  /api/costs        Operation cost catalog
  /api/packages     Credit packages
  /api/admin/*      Reconciliation tools and uncapped history

SECURITY NOTE:
  Authentication is the identity collaborator's concern; this service
  trusts the account ids it is handed. Deploy behind the gateway.
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Account routes
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.CreateAccount)
			r.Get("/{id}", h.GetAccount)
			r.Delete("/{id}", h.DeleteAccount)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/transactions", h.GetTransactions)
			r.Post("/{id}/debit", h.Debit)
			r.Post("/{id}/sufficient", h.Sufficiency)
		})

		// Payment collaborator callbacks
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/payment", h.PaymentWebhook)
		})

		// Catalog routes
		r.Get("/costs", h.ListCosts)
		r.Put("/costs/{operation}", h.SetCost)
		r.Get("/packages", h.ListPackages)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Get("/accounts/{id}/transactions", h.AdminTransactions)
			r.Route("/reconcile", func(r chi.Router) {
				r.Post("/missing-bonuses", h.ReconcileMissingBonuses)
				r.Post("/duplicate-bonuses", h.ReconcileDuplicateBonuses)
				r.Post("/burned-emails", h.ReconcileBurnedEmails)
				r.Get("/balances", h.ReconcileBalances)
			})
		})
	})

	// Health check for the load balancer
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
