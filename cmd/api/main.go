package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/soleshop/checkout/internal/checkout"
	"github.com/soleshop/checkout/internal/config"
	"github.com/soleshop/checkout/internal/httpx"
	kafkax "github.com/soleshop/checkout/internal/kafka"
	"github.com/soleshop/checkout/internal/memstore"
	"github.com/soleshop/checkout/internal/postgres"
	"github.com/soleshop/checkout/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	log, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store
	var store checkout.Store
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store; state is lost on restart")
		store = memstore.New()
	default:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal("db migrate", zap.Error(err))
		}
		store = postgres.NewStore(pool)
	}

	// Redis status cache
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka event bus
	var (
		events checkout.EventBus
		bus    *kafkax.Bus
	)
	if len(cfg.KafkaBrokers) > 0 {
		bus = kafkax.NewBus(cfg.KafkaBrokers, cfg.ServiceName)
		bus.Start(ctx)
		events = bus
	}

	svc := checkout.NewService(store, events, log)

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{Checkout: svc, Redis: rdb, Log: log}
	oh.Register(router)
	ph := &httpx.PaymentsHandler{Checkout: svc, Redis: rdb, Log: log}
	ph.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	if bus != nil {
		bus.Close() // close inboxes -> flush & close writers
		bus.WaitClosed()
	}
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("ENV") == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
