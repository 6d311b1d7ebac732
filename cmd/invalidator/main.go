package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/logger"
	pkgredis "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting cache invalidator",
		"topic", cfg.Kafka.Topics.IndexComplete,
		"group", cfg.Kafka.ConsumerGroup,
		"redis", cfg.Redis.Addr,
	)

	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete, cache.HandleIndexComplete(redisClient))
	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}
	slog.Info("cache invalidator stopped")
}
