/**
 * @description
 * HTTP router setup for the WishChain API using go-chi/chi.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/wishchain/wishchain-backend/internal/domain"
)

// NewRouter creates a new Chi router and registers the WishChain routes.
func NewRouter(h *Handler, sessions SessionVerifier, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("WishChain is healthy"))
	})

	r.Post("/register/wisher", h.handleRegisterWisher)
	r.Post("/register/donor", h.handleRegisterDonor)
	r.Post("/auth/login", h.handleLogin)

	r.Route("/geo", func(r chi.Router) {
		r.Get("/countries", h.handleListCountries)
		r.Get("/cities", h.handleListCities)
	})

	r.Group(func(r chi.Router) {
		r.Use(SessionAuthMiddleware(sessions))

		r.Get("/me", h.handleMe)

		r.Route("/wishes", func(r chi.Router) {
			r.Get("/dashboard", h.handleWisherDashboard)
			r.Get("/{wishID}", h.handleGetWish)
			r.With(RequireRole(domain.RoleWisher)).Post("/", h.handleCreateWish)
		})

		r.Route("/donations", func(r chi.Router) {
			r.Get("/donate", h.handleDonatePage)
			r.Get("/dashboard", h.handleDonorDashboard)
			r.With(RequireRole(domain.RoleDonor)).Post("/grant/{wishID}", h.handleGrantWish)
		})
	})

	return r
}
