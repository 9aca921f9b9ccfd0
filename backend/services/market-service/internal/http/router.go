package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"gridmarket/backend/services/market-service/internal/http/handlers"
)

// Routes groups HTTP handlers.
type Routes struct {
	Producers    *handlers.ProducerHandlers
	Consumers    *handlers.ConsumerHandlers
	Transactions *handlers.TransactionHandlers
	Feed         http.HandlerFunc
	Health       http.HandlerFunc
	Metrics      http.Handler
}

// NewRouter registers service endpoints. Optional routes with nil handlers are skipped.
func NewRouter(routes Routes, middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middlewares...)

	if routes.Health != nil {
		r.Get("/health", routes.Health)
	}
	if routes.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", routes.Metrics)
	}

	r.Route("/producers", func(r chi.Router) {
		r.Post("/", routes.Producers.Create)
		r.Get("/", routes.Producers.List)
		r.Get("/{id}", routes.Producers.Get)
		r.Patch("/{id}", routes.Producers.Update)
	})

	r.Route("/consumers", func(r chi.Router) {
		r.Post("/", routes.Consumers.Create)
		r.Get("/", routes.Consumers.List)
		r.Get("/{id}", routes.Consumers.Get)
		r.Patch("/{id}", routes.Consumers.Update)
		r.Delete("/{id}", routes.Consumers.Delete)
		r.Get("/{id}/match", routes.Consumers.Match)
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", routes.Transactions.Execute)
		r.Get("/", routes.Transactions.List)
		r.Get("/{id}", routes.Transactions.Get)
	})

	if routes.Feed != nil {
		r.Get("/ws/transactions", routes.Feed)
	}
	return r
}
