package app

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gridmarket/backend/libs/middleware"
	"gridmarket/backend/services/api-gateway/internal/clients"
	"gridmarket/backend/services/api-gateway/internal/config"
	httpserver "gridmarket/backend/services/api-gateway/internal/http"
	"gridmarket/backend/services/api-gateway/internal/http/handlers"
	gwmiddleware "gridmarket/backend/services/api-gateway/internal/http/middleware"
)

const (
	limiterSweepInterval = time.Minute
	limiterIdleTTL       = 10 * time.Minute
)

// App wires API gateway dependencies.
type App struct {
	server  *httpserver.Server
	router  http.Handler
	limiter *gwmiddleware.RateLimiter
	logger  *zap.Logger
}

// New constructs application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	httpClient := clients.NewDefaultHTTPClient(cfg.HTTPTimeout())
	marketClient := clients.NewMarketClient(cfg.Services.MarketURL, httpClient)

	var apiMiddlewares []func(http.Handler) http.Handler
	var limiter *gwmiddleware.RateLimiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter = gwmiddleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)
		apiMiddlewares = append(apiMiddlewares, limiter.Handler)
	}

	router := httpserver.NewRouter(httpserver.RouterDeps{
		MarketHandlers: handlers.NewMarketHandlers(marketClient, logger),
	}, apiMiddlewares...)

	server := httpserver.NewServer(
		cfg.HTTPAddress(),
		router,
		logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)

	return &App{
		server:  server,
		router:  router,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Handler exposes the routed handler without server middleware.
func (a *App) Handler() http.Handler {
	return a.router
}

// Run starts serving HTTP traffic.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Run(gctx)
	})
	if a.limiter != nil {
		g.Go(func() error {
			a.limiter.RunSweeper(gctx, limiterSweepInterval, limiterIdleTTL)
			return nil
		})
	}
	return g.Wait()
}

// Close releases resources (none yet).
func (a *App) Close() {}
