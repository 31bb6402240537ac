package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/assettrack-backend/api/routes"
	"github.com/angelmondragon/assettrack-backend/internal/assets"
	"github.com/angelmondragon/assettrack-backend/internal/assignments"
	"github.com/angelmondragon/assettrack-backend/internal/audit"
	"github.com/angelmondragon/assettrack-backend/internal/cascade"
	"github.com/angelmondragon/assettrack-backend/internal/purchaseorders"
	"github.com/angelmondragon/assettrack-backend/internal/query"
	"github.com/angelmondragon/assettrack-backend/pkg/config"
	"github.com/angelmondragon/assettrack-backend/pkg/db"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	"github.com/angelmondragon/assettrack-backend/pkg/metrics"
	"github.com/angelmondragon/assettrack-backend/pkg/migrate"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox"
	"github.com/angelmondragon/assettrack-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing clients", err)
		}
	}()

	router, err := buildRouter(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func buildRouter(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (http.Handler, error) {
	conn := dbClient.DB()
	engineMetrics := metrics.NewEngineMetrics(prometheus.DefaultRegisterer)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	recorder, err := audit.NewRecorder(audit.NewRepository(conn))
	if err != nil {
		return nil, err
	}

	assetRepo := assets.NewRepository(conn)
	assignRepo := assignments.NewRepository(conn)
	poRepo := purchaseorders.NewRepository(conn)

	poService, err := purchaseorders.NewService(poRepo, logg)
	if err != nil {
		return nil, err
	}
	assetService, err := assets.NewService(assets.ServiceParams{
		Repository:        assetRepo,
		Recorder:          recorder,
		PurchaseOrders:    poService,
		TransactionRunner: dbClient,
		Outbox:            emitter,
		Logger:            logg,
		Metrics:           engineMetrics,
	})
	if err != nil {
		return nil, err
	}
	assignmentService, err := assignments.NewService(assignments.ServiceParams{
		Assets:            assetRepo,
		Repository:        assignRepo,
		Recorder:          recorder,
		TransactionRunner: dbClient,
		Outbox:            emitter,
		Logger:            logg,
		Metrics:           engineMetrics,
	})
	if err != nil {
		return nil, err
	}
	cascadeService, err := cascade.NewService(cascade.ServiceParams{
		Assets:            assetService,
		Assignments:       assignmentService,
		AssetRepository:   assetRepo,
		AssignmentRepo:    assignRepo,
		PurchaseOrderRepo: poRepo,
		TransactionRunner: dbClient,
		Outbox:            emitter,
		Logger:            logg,
		Metrics:           engineMetrics,
		BatchSize:         cfg.Engine.POMigrationBatchSize,
	})
	if err != nil {
		return nil, err
	}
	queryService, err := query.NewService(query.ServiceParams{
		Assets:          assetRepo,
		Assignments:     assignRepo,
		Recorder:        recorder,
		DefaultPageSize: cfg.Engine.HistoryPageSize,
	})
	if err != nil {
		return nil, err
	}

	return routes.NewRouter(routes.RouterParams{
		Config:           cfg,
		Logger:           logg,
		DB:               dbClient,
		Redis:            redisClient,
		IdempotencyStore: redisClient,
		Assets:           assetService,
		Assignments:      assignmentService,
		Cascade:          cascadeService,
		PurchaseOrders:   poService,
		Query:            queryService,
	}), nil
}
