package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/naclonts/marketstream/cmd/poller/internal/publisher"
	"github.com/naclonts/marketstream/pkg/catalog"
	"github.com/naclonts/marketstream/pkg/config"
	"github.com/naclonts/marketstream/pkg/poller"
	"github.com/naclonts/marketstream/pkg/provider/factory"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
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
	symbols := make([]string, len(defs))
	for i, d := range defs {
		symbols[i] = d.Symbol
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}

	sinks := []publisher.Sink{
		publisher.NewRedisPublisher(rdb, cfg.Redis.SnapshotKey, cfg.Redis.Channel, cfg.Redis.SnapshotTTL),
	}

	var archiver *publisher.KafkaArchiver
	if cfg.Archive.Enabled {
		dialer := publisher.NewKafkaDialer(&kafka.Dialer{Timeout: 10 * time.Second})
		creator := publisher.NewTopicCreator(logger, dialer, publisher.RealClock{})
		if err := creator.Ensure(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
			logger.Fatal("Archive topic unavailable", zap.String("topic", cfg.Kafka.Topic), zap.Error(err))
		}

		archiver = publisher.NewKafkaArchiver(publisher.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		sinks = append(sinks, archiver)
		logger.Info("Archiving snapshots", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	fanout := publisher.NewFanout(logger, sinks...)
	p := poller.New(logger, prov, symbols, poller.Options{
		Interval:       cfg.Stream.PollInterval,
		FetchTimeout:   cfg.Stream.FetchTimeout,
		MaxConcurrency: cfg.Stream.MaxConcurrency,
	})

	if err := p.Run(ctx, fanout.Emit); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Poller stopped", zap.Error(err))
	}
	logger.Info("Shutdown signal received, stopping poller...")

	if archiver != nil {
		// Flush buffered archive writes
		if err := archiver.Close(); err != nil {
			logger.Error("Error closing Kafka writer", zap.Error(err))
		} else {
			logger.Info("Kafka writer closed cleanly")
		}
	}

	logger.Info("Closing Redis...")
	rdb.Close()

	logger.Info("Poller exited cleanly")
}
