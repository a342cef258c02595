package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	kafkago "github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-venue-pos/internal/config"
	kafkax "github.com/ariefcatur/go-venue-pos/internal/kafka"
	"github.com/ariefcatur/go-venue-pos/internal/logger"
	"github.com/ariefcatur/go-venue-pos/internal/redisx"
	"github.com/ariefcatur/go-venue-pos/internal/storage"
)

// historian persists the history entries cmd/api publishes when
// HISTORY_SINK=kafka.
func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logger.New("historian", "info").Error("config", "error", err)
		os.Exit(1)
	}
	service := cfg.ServiceName + "-historian"
	log := logger.New(service, cfg.LogLevel)
	if err := run(cfg, service, log); err != nil {
		log.Error("historian exit", "error", err)
		os.Exit(1)
	}
	log.Info("historian stopped")
}

func run(cfg config.Config, service string, log *slog.Logger) error {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer closeStore()
	if err := st.Migrate(ctx, log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	var cache *redisx.Cache
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		cache = redisx.NewCache(rdb)
	}

	store := kafkax.HistoryHandler(st, log)
	handle := func(ctx context.Context, m kafkago.Message) error {
		id := kafkax.HeaderValue(m, kafkax.HeaderHistoryID)
		if id != "" && cache.Seen(ctx, service, id) {
			return nil
		}
		if err := store(ctx, m); err != nil {
			return err
		}
		if id != "" {
			if err := cache.MarkSeen(ctx, service, id); err != nil {
				log.Warn("dedup mark failed", "error", err, "entry_id", id)
			}
		}
		return nil
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.HistorianGroup, kafkax.TopicHistory, cfg.HistorianWorkers, log)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("historian consumer started", "group", cfg.HistorianGroup, "topic", kafkax.TopicHistory, "workers", cfg.HistorianWorkers)
		return cons.Start(gctx, handle)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("consumer: %w", err)
	}
	return nil
}
