package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-bookstore.git/internal/catalog"
	"github.com/ariefcatur/go-bookstore.git/internal/config"
	"github.com/ariefcatur/go-bookstore.git/internal/feedback"
	"github.com/ariefcatur/go-bookstore.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-bookstore.git/internal/kafka"
	"github.com/ariefcatur/go-bookstore.git/internal/logging"
	"github.com/ariefcatur/go-bookstore.git/internal/orders"
	"github.com/ariefcatur/go-bookstore.git/internal/postgres"
	"github.com/ariefcatur/go-bookstore.git/internal/redisx"
	"github.com/ariefcatur/go-bookstore.git/internal/telemetry"
	"github.com/ariefcatur/go-bookstore.git/internal/users"
	"github.com/ariefcatur/go-bookstore.git/internal/wishlist"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := logging.New(cfg.ServiceName, cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
			return err
		}
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger.Named("producer"))
	prod.Start()

	// Repos & handlers
	orderRepo := &orders.Repo{DB: db}
	productRepo := &catalog.Repo{DB: db}
	router := httpx.NewRouter(httpx.RouterConfig{
		Log:         logger.Named("http"),
		CORSOrigins: cfg.CORSOrigins,
		Limiter:     redisx.NewLimiter(rdb, cfg.RateLimit, cfg.RateWindow),
		RateWindow:  cfg.RateWindow,
		AdminKey:    cfg.AdminAPIKey,
		ImageDir:    cfg.UploadDir,
		Orders: &httpx.OrdersHandler{
			Checkout: orders.NewCheckout(orderRepo, orderRepo, logger.Named("checkout")),
			Orders:   orderRepo,
			Cache:    &redisx.StatusCache{RDB: rdb},
			Events:   prod,
			Service:  cfg.ServiceName,
			Timeout:  cfg.CheckoutTimeout,
			Log:      logger,
		},
		Products: &httpx.ProductsHandler{
			Products:       productRepo,
			Images:         &catalog.ImageStore{Dir: cfg.UploadDir, MaxBytes: cfg.MaxUploadBytes},
			MaxUploadBytes: cfg.MaxUploadBytes,
			Log:            logger,
		},
		Users:    &httpx.UsersHandler{Users: users.NewService(&users.Repo{DB: db}, logger.Named("users")), Log: logger},
		Feedback: &httpx.FeedbackHandler{Feedback: &feedback.Repo{DB: db}, Log: logger},
		Wishlist: &httpx.WishlistHandler{Wishlist: &wishlist.Repo{DB: db}, Log: logger},
	})

	// HTTP server
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: otelhttp.NewHandler(router, cfg.ServiceName),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(sctx)
		prod.Close()      // tutup inbox -> flush & close writer
		prod.WaitClosed() // drain
		return err
	})
	return g.Wait()
}
