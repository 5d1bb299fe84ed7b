package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/naclonts/marketstream/cmd/gateway/internal/hub"
	"github.com/naclonts/marketstream/cmd/gateway/internal/repository"
	"github.com/naclonts/marketstream/cmd/gateway/internal/server"
	"github.com/naclonts/marketstream/pkg/catalog"
	"github.com/naclonts/marketstream/pkg/config"
	"github.com/naclonts/marketstream/pkg/poller"
	"github.com/naclonts/marketstream/pkg/provider/factory"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prov, err := factory.New(cfg.Provider, logger)
	if err != nil {
		logger.Fatal("Provider Error", zap.Error(err))
	}

	defs, err := catalog.LoadDefinitions(cfg.Catalog.File)
	if err != nil {
		logger.Fatal("Catalog Error", zap.Error(err))
	}
	defs = catalog.Restrict(defs, cfg.Catalog.Tickers)
	cat := catalog.Build(ctx, prov, defs, cfg.Catalog.FetchTimeout, logger)

	opts := server.Options{
		Catalog:    cat,
		WindowSize: cfg.Stream.WindowSize,
		Logger:     logger,
	}

	switch cfg.Stream.Mode {
	case config.ModeShared:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		repo := repository.NewRedisStore(rdb, cfg.Redis.SnapshotKey, cfg.Redis.Channel)
		defer repo.Close()

		if err := repo.Ping(ctx); err != nil {
			logger.Fatal("Redis Error", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}

		// Dependency Injection: Hub depends on the Repository Interface
		wsHub := hub.NewHub(repo, cat, logger)
		go func() {
			if err := wsHub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Snapshot subscription ended", zap.Error(err))
			}
		}()
		opts.Hub = wsHub

	default:
		opts.Poller = poller.New(logger, prov, cat.Symbols(), poller.Options{
			Interval:       cfg.Stream.PollInterval,
			FetchTimeout:   cfg.Stream.FetchTimeout,
			MaxConcurrency: cfg.Stream.MaxConcurrency,
		})
	}

	srv, err := server.New(opts)
	if err != nil {
		logger.Fatal("Server Error", zap.Error(err))
	}

	httpSrv := &http.Server{
		Addr:              cfg.App.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("Server Started",
			zap.String("port", cfg.App.Port),
			zap.String("mode", cfg.Stream.Mode),
			zap.Int("symbols", cat.Len()),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP Error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Shutdown Error", zap.Error(err))
	}
	logger.Info("Shutdown Complete")
}
