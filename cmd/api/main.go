package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-venue-pos/internal/config"
	"github.com/ariefcatur/go-venue-pos/internal/events"
	"github.com/ariefcatur/go-venue-pos/internal/history"
	"github.com/ariefcatur/go-venue-pos/internal/httpx"
	"github.com/ariefcatur/go-venue-pos/internal/inventory"
	kafkax "github.com/ariefcatur/go-venue-pos/internal/kafka"
	"github.com/ariefcatur/go-venue-pos/internal/logger"
	"github.com/ariefcatur/go-venue-pos/internal/orders"
	"github.com/ariefcatur/go-venue-pos/internal/rabbitmq"
	"github.com/ariefcatur/go-venue-pos/internal/redisx"
	"github.com/ariefcatur/go-venue-pos/internal/storage"
	"github.com/ariefcatur/go-venue-pos/internal/treasury"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New("pos-api", "info").Error("config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.ServiceName, cfg.LogLevel)
	if err := run(cfg, log); err != nil {
		log.Error("api exit", "error", err)
		os.Exit(1)
	}
}

// run owns every resource so its defers always execute before main exits.
func run(cfg config.Config, log *slog.Logger) error {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store
	st, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer closeStore()
	if err := st.Migrate(ctx, log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// Redis (optional)
	var cache *redisx.Cache
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		cache = redisx.NewCache(rdb)
	}

	// Kafka producer: domain events and/or history transport
	var prod *kafkax.Producer
	if cfg.EventBus == "kafka" || cfg.HistorySink == "kafka" {
		// outlives the signal context so history can still flush through it
		prodCtx, cancelProd := context.WithCancel(context.Background())
		defer cancelProd()
		prod = kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
		prod.Start(prodCtx)
		defer func() {
			prod.Close()
			prod.WaitClosed()
		}()
	}

	var pub events.Publisher = events.Nop
	switch cfg.EventBus {
	case "kafka":
		pub = prod
	case "rabbitmq":
		rmq, err := rabbitmq.Dial(cfg.RabbitURL)
		if err != nil {
			return fmt.Errorf("rabbitmq: %w", err)
		}
		defer rmq.Close()
		pub = rmq
	}

	var sink history.Sink = st
	if cfg.HistorySink == "kafka" {
		sink = kafkax.NewHistorySink(prod)
	}
	rec := history.NewAsyncRecorder(sink, cfg.HistoryBuffer, log)
	rec.Start()
	// flush history first: with the kafka sink it still needs the producer
	defer func() {
		rec.Close()
		rec.WaitClosed()
	}()

	// Services & handlers
	engine := orders.NewEngine(st, rec, log, orders.WithEvents(pub), orders.WithProducer(cfg.ServiceName))
	router := httpx.NewRouter()
	(&httpx.OrdersHandler{Engine: engine, Clients: st, Cache: cache, Log: log}).Register(router)
	(&httpx.AdminHandler{
		Inventory: inventory.NewService(st, log),
		Treasury:  treasury.NewService(st, pub, cfg.ServiceName, log),
		History:   st,
		Log:       log,
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver, "event_bus", cfg.EventBus)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
