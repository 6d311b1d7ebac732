package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/runlog"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	collection := flag.String("collection", "", "collection root (overrides indexer.collectionRoot)")
	output := flag.String("output", "", "output directory (overrides indexer.outputDir)")
	codecName := flag.String("codec", "", "postings codec, fixed or vbyte (overrides indexer.codec)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *collection != "" {
		cfg.Indexer.CollectionRoot = *collection
	}
	if *output != "" {
		cfg.Indexer.OutputDir = *output
	}
	if *codecName != "" {
		cfg.Indexer.Codec = *codecName
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer",
		"collection", cfg.Indexer.CollectionRoot,
		"output", cfg.Indexer.OutputDir,
		"codec", cfg.Indexer.Codec,
		"workers", cfg.Indexer.Workers,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []indexer.Option
	if cfg.Metrics.Enabled {
		opts = append(opts, indexer.WithMetrics(metrics.New()))
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()
		opts = append(opts, indexer.WithNotifier(indexer.NewKafkaNotifier(producer)))
		slog.Info("index completion events enabled", "topic", cfg.Kafka.Topics.IndexComplete)
	}
	if cfg.Postgres.Enabled {
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, run ledger disabled", "error", err)
		} else {
			defer pg.Close()
			ledger := runlog.New(pg.DB)
			if err := ledger.EnsureSchema(ctx); err != nil {
				slog.Error("failed to create run ledger schema", "error", err)
				os.Exit(1)
			}
			opts = append(opts, indexer.WithRunRecorder(ledger))
			slog.Info("run ledger enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		}
	}

	engine, err := indexer.NewEngine(cfg.Indexer, opts...)
	if err != nil {
		slog.Error("failed to create indexing engine", "error", err)
		os.Exit(exitCode(err))
	}
	stats, err := engine.Run(ctx, cfg.Indexer.CollectionRoot, cfg.Indexer.OutputDir)
	if err != nil {
		slog.Error("indexing failed", "error", err, "fatal", apperrors.IsFatal(err))
		os.Exit(exitCode(err))
	}

	fmt.Printf("index %s written to %s\n", stats.IndexName, stats.OutputDir)
	fmt.Printf("  blocks:         %d\n", stats.Blocks)
	fmt.Printf("  documents:      %d\n", stats.Documents)
	fmt.Printf("  terms:          %d\n", stats.Terms)
	fmt.Printf("  postings bytes: %d (%s)\n", stats.PostingsBytes, stats.Codec)
	fmt.Printf("  elapsed:        %s\n", stats.Duration.Round(time.Millisecond))
}

// exitCode separates runs that cannot succeed without changing the
// collection or settings (1, 2) from interrupted (130) and possibly
// transient failures such as I/O errors (3).
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case apperrors.IsFatal(err):
		return 1
	case errors.Is(err, apperrors.ErrInvalidInput):
		return 2
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 3
	}
}
