package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/example/ride-hailing/internal/billing"
	"github.com/example/ride-hailing/internal/config"
	"github.com/example/ride-hailing/internal/dispatch"
	"github.com/example/ride-hailing/internal/eta"
	"github.com/example/ride-hailing/internal/geo"
	httpapi "github.com/example/ride-hailing/internal/http"
	"github.com/example/ride-hailing/internal/ingest"
	"github.com/example/ride-hailing/internal/logging"
	"github.com/example/ride-hailing/internal/matcher"
	"github.com/example/ride-hailing/internal/payments"
	"github.com/example/ride-hailing/internal/proximity"
	"github.com/example/ride-hailing/internal/ride"
	"github.com/example/ride-hailing/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	logger := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var directory geo.Directory
	if cfg.RedisAddr != "" {
		directory = geo.NewRedisDirectory(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisKeyPrefix)
	} else {
		directory = geo.NewIndex()
	}

	var store storage.RideStore
	if cfg.PGDSN != "" {
		if cfg.RunMigrations {
			if err := runMigrations(cfg.PGDSN); err != nil {
				logger.Error("migration failed", "error", err)
				os.Exit(1)
			}
			logger.Info("migrations applied")
		}
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			logger.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		store = ps
	} else {
		store = storage.NewMemoryStore()
	}

	var biller billing.Client
	var users billing.UserDirectory
	if cfg.SharedServerURL != "" {
		shared := billing.NewSharedServerClient(cfg.SharedServerURL, cfg.SharedServerToken)
		biller, users = shared, shared
	} else {
		logger.Warn("no shared server configured; billing locally at a flat rate")
		biller, users = billing.NewFlatRateBiller(), billing.AllowAllUsers{}
	}

	var pay payments.Payments
	if cfg.StripeAPIKey != "" {
		pay = payments.NewStripeClient(cfg.StripeAPIKey)
	}

	var kafka *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kafka = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafka.Close()
	}

	wsreg := dispatch.NewWSRegistry(logging.Component(logger, "ws"))
	var notifier dispatch.Notifier = wsreg
	if endpoint := os.Getenv("FCM_ENDPOINT"); endpoint != "" {
		fcm := dispatch.NewFCMDispatcher(endpoint, os.Getenv("FCM_KEY"), logging.Component(logger, "fcm"))
		notifier = dispatch.NewPushDispatcher(wsreg, fcm)
	}

	estimator := &eta.Estimator{
		Cache:           eta.NewCache(cfg.IdleTimeout),
		DefaultSpeedMps: cfg.DefaultSpeedMps,
	}
	if cfg.OSRMEndpoint != "" {
		estimator.Client = eta.NewOSRMClient(cfg.OSRMEndpoint)
	}

	gate := proximity.NewGate(directory)
	gate.RadiusKm = cfg.ProximityKm

	rides := &ride.Service{
		Directory: directory,
		Matcher:   &matcher.Service{Directory: directory},
		Gate:      gate,
		Store:     store,
		Users:     users,
		Billing:   biller,
		Payments:  pay,
		Notifier:  notifier,
		ETA:       estimator,
		Logger:    logging.Component(logger, "ride"),
		Currency:  cfg.Currency,
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewServer(logging.Component(logger, "http"), directory, rides, kafka, wsreg),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("ride-hailing api listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

func runMigrations(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_init.sql"))
	if err != nil {
		return err
	}
	_, err = db.Exec(string(b))
	return err
}
