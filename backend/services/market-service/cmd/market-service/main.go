package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"gridmarket/backend/libs/logging"
	"gridmarket/backend/services/market-service/internal/app"
	"gridmarket/backend/services/market-service/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger("market-service")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to init market service", zap.Error(err))
	}
	defer application.Close()

	logger.Info("market service configured",
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Bool("feed_enabled", cfg.Feed.Enabled),
	)

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("market service stopped with error", zap.Error(err))
	}
}
