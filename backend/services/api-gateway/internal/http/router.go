package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"gridmarket/backend/services/api-gateway/internal/http/handlers"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	MarketHandlers *handlers.MarketHandlers
}

// NewRouter wires public routes. Middlewares apply to /api only.
func NewRouter(deps RouterDeps, middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)

	r.Get("/health", deps.MarketHandlers.Health)

	proxy := deps.MarketHandlers.Proxy
	r.Route("/api", func(r chi.Router) {
		r.Use(middlewares...)

		r.Route("/producers", func(r chi.Router) {
			r.Post("/", proxy)
			r.Get("/", proxy)
			r.Get("/{id}", proxy)
			r.Patch("/{id}", proxy)
		})
		r.Route("/consumers", func(r chi.Router) {
			r.Post("/", proxy)
			r.Get("/", proxy)
			r.Get("/{id}", proxy)
			r.Patch("/{id}", proxy)
			r.Delete("/{id}", proxy)
			r.Get("/{id}/match", proxy)
		})
		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", proxy)
			r.Get("/", proxy)
			r.Get("/{id}", proxy)
		})
	})
	return r
}
