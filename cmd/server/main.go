package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restoran-pos/internal/auth"
	"restoran-pos/internal/config"
	"restoran-pos/internal/database"
	"restoran-pos/internal/events"
	"restoran-pos/internal/inventory"
	"restoran-pos/internal/ledger"
	"restoran-pos/internal/logging"
	"restoran-pos/internal/metrics"
	"restoran-pos/internal/orders"
	"restoran-pos/internal/report"
	"restoran-pos/internal/server"
	"restoran-pos/internal/store"
	"restoran-pos/internal/store/memory"
	"restoran-pos/internal/store/mongo"
	"restoran-pos/internal/store/postgres"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env yoksa ortam değişkenleri kullanılır
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	metrics.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("store init failed", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}

	orderOpts := []orders.Option{orders.WithLogger(log)}
	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL, log)
		if err != nil {
			log.Fatal("nats connect failed", zap.Error(err))
		}
		defer pub.Close()
		orderOpts = append(orderOpts, orders.WithPublisher(pub))
	}

	reportTZ, err := time.LoadLocation(cfg.ReportTimezone)
	if err != nil {
		log.Fatal("invalid REPORT_TIMEZONE", zap.String("timezone", cfg.ReportTimezone), zap.Error(err))
	}
	reports := report.NewService(st, log)

	if cfg.ReportDir != "" {
		scheduler, err := report.NewExporter(reports, cfg.ReportDir, reportTZ, log).Schedule(cfg.ReportAt)
		if err != nil {
			log.Fatal("report scheduler", zap.Error(err))
		}
		scheduler.StartAsync()
		defer scheduler.Stop()
	}

	app := server.New(server.Deps{
		Store: st,
		Log:   log,
		Auth: auth.NewService(st, auth.Settings{
			JWTSecret:       cfg.JWTSecret,
			AccessTokenTTL:  cfg.AccessTokenTTL,
			RefreshTokenTTL: cfg.RefreshTokenTTL,
		}, log),
		Inventory:   inventory.NewService(st, ledger.New(nil), log),
		Orders:      orders.NewService(st, orderOpts...),
		Reports:     reports,
		JWTSecret:   cfg.JWTSecret,
		Cookie:      auth.CookieSettings{Name: cfg.RefreshCookieName, Secure: cfg.IsProduction()},
		CORSOrigins: cfg.CORSOrigins,
		ReportTZ:    reportTZ,
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error("http shutdown", zap.Error(err))
		}
	}()

	log.Info("server starting", zap.String("port", cfg.HTTPPort), zap.String("store", cfg.StoreDriver))
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Error("server stopped", zap.Error(err))
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := st.Close(closeCtx); err != nil {
		log.Warn("store close", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := database.Open(cfg.DatabaseDSN, log)
		if err != nil {
			return nil, err
		}
		return postgres.New(db,
			postgres.WithTxAttempts(cfg.TxMaxAttempts),
			postgres.WithTxTimeout(cfg.TxTimeout),
			postgres.WithLogger(log),
		), nil
	case config.DriverMongo:
		ms, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDB, cfg.TxTimeout, log)
		if err != nil {
			return nil, err
		}
		return ms, nil
	case config.DriverMemory:
		log.Warn("memory store in use, data is lost on restart")
		return memory.New(), nil
	}
	return nil, errors.New("unknown STORE_DRIVER " + cfg.StoreDriver)
}
