package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-bookstore.git/internal/catalog"
	"github.com/ariefcatur/go-bookstore.git/internal/config"
	kafkax "github.com/ariefcatur/go-bookstore.git/internal/kafka"
	"github.com/ariefcatur/go-bookstore.git/internal/logging"
	"github.com/ariefcatur/go-bookstore.git/internal/orders"
	"github.com/ariefcatur/go-bookstore.git/internal/postgres"
	"github.com/ariefcatur/go-bookstore.git/internal/redisx"
	"github.com/ariefcatur/go-bookstore.git/internal/stockalert"
	"github.com/ariefcatur/go-bookstore.git/internal/telemetry"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	service := cfg.ServiceName + "-stockalert"

	logger, err := logging.New(service, cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, service, logger); err != nil {
		logger.Fatal("stockalert exited", zap.Error(err))
	}
}

func run(cfg config.Config, service string, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, service, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = shutdownTelemetry(sctx)
	}()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger.Named("producer"))
	prod.Start()

	svc := &stockalert.Service{
		Stock:       &catalog.Repo{DB: db},
		Dedup:       &redisx.Dedup{RDB: rdb, Service: "stockalert"},
		Producer:    prod,
		Threshold:   cfg.LowStockThreshold,
		ServiceName: service,
		Log:         logger,
	}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.StockAlertGroup, orders.TopicOrderPlaced, cfg.StockAlertWorkers, logger.Named("consumer"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("stockalert consumer started",
			zap.String("group", cfg.StockAlertGroup),
			zap.String("topic", orders.TopicOrderPlaced),
			zap.Int("workers", cfg.StockAlertWorkers),
		)
		return cons.Start(gctx, svc.HandleOrderPlaced)
	})
	err = g.Wait()

	logger.Info("shutting down consumer...")
	prod.Close()
	prod.WaitClosed()
	return err
}
