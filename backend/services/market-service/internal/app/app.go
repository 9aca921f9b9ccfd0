package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	libdb "gridmarket/backend/libs/db"
	"gridmarket/backend/libs/middleware"
	libredis "gridmarket/backend/libs/redis"
	"gridmarket/backend/services/market-service/internal/config"
	"gridmarket/backend/services/market-service/internal/feed"
	httpserver "gridmarket/backend/services/market-service/internal/http"
	"gridmarket/backend/services/market-service/internal/http/handlers"
	"gridmarket/backend/services/market-service/internal/lock"
	"gridmarket/backend/services/market-service/internal/matcher"
	"gridmarket/backend/services/market-service/internal/metrics"
	"gridmarket/backend/services/market-service/internal/registry"
	"gridmarket/backend/services/market-service/internal/settlement"
	"gridmarket/backend/services/market-service/internal/store"
	"gridmarket/backend/services/market-service/internal/store/memory"
	"gridmarket/backend/services/market-service/internal/store/postgres"
	redisstore "gridmarket/backend/services/market-service/internal/store/redis"
)

// App wires market service dependencies.
type App struct {
	server *httpserver.Server
	router http.Handler
	store  store.Store
	hub    *feed.Hub
	logger *zap.Logger
}

// New constructs application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	locks := lock.NewKeyedMutex()
	reg := registry.New(st, locks, logger)
	match := matcher.New(st, logger)

	var hub *feed.Hub
	var engineOpts []settlement.Option
	if cfg.Feed.Enabled {
		hub = feed.NewHub(feed.Options{
			WriteTimeout: cfg.FeedWriteTimeout(),
			PingInterval: cfg.FeedPingInterval(),
		}, logger)
		engineOpts = append(engineOpts, settlement.WithPublisher(hub))
	}
	engine := settlement.New(st, locks, logger, engineOpts...)

	routes := httpserver.Routes{
		Producers:    handlers.NewProducerHandlers(reg, logger),
		Consumers:    handlers.NewConsumerHandlers(reg, match, logger),
		Transactions: handlers.NewTransactionHandlers(engine, logger),
		Metrics:      metrics.Handler(),
	}
	if hub != nil {
		routes.Feed = hub.HandleWS
		routes.Health = handlers.NewHealthHandler(st, hub, logger)
	} else {
		routes.Health = handlers.NewHealthHandler(st, nil, logger)
	}

	router := httpserver.NewRouter(routes, metrics.InstrumentHandler)
	server := httpserver.NewServer(
		cfg.HTTPAddress(),
		router,
		logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)

	return &App{
		server: server,
		router: router,
		store:  st,
		hub:    hub,
		logger: logger,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		sqlDB, err := libdb.NewPostgresDB(ctx, cfg.Database.DSN, libdb.PoolOptions{
			MaxOpenConns: cfg.Database.MaxOpenConns,
			ConnLifetime: cfg.Database.ConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.Database.Migrate {
			if err := postgres.Migrate(sqlDB); err != nil {
				sqlDB.Close()
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
			logger.Info("postgres schema up to date")
		}
		return postgres.New(sqlDB), nil
	case config.DriverRedis:
		client, err := libredis.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		return redisstore.New(client, cfg.Redis.Prefix), nil
	case config.DriverMemory, "":
		logger.Warn("using in-memory ledger store; state is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Handler exposes the routed handler without server middleware.
func (a *App) Handler() http.Handler {
	return a.router
}

// Run serves HTTP traffic and the feed keepalive until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Run(gctx)
	})
	if a.hub != nil {
		g.Go(func() error {
			a.hub.Start(gctx)
			return nil
		})
	}
	return g.Wait()
}

// Close releases resources.
func (a *App) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close store", zap.Error(err))
		}
	}
}
