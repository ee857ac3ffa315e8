package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/firmdesk/collections-backend/internal/api/rest"
	"github.com/firmdesk/collections-backend/internal/infrastructure/cache"
	"github.com/firmdesk/collections-backend/internal/infrastructure/config"
	"github.com/firmdesk/collections-backend/internal/infrastructure/database"
	"github.com/firmdesk/collections-backend/internal/infrastructure/repository"
	"github.com/firmdesk/collections-backend/internal/infrastructure/telemetry"
	"github.com/firmdesk/collections-backend/internal/metrics"
	collectionsvc "github.com/firmdesk/collections-backend/internal/service/collection"
	"github.com/firmdesk/collections-backend/internal/service/feetracking"
	"github.com/firmdesk/collections-backend/internal/service/groupfee"
)

func main() {
	runMigrations := flag.Bool("migrate", false, "Run database migrations and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if *runMigrations {
		if err := migrateUp(cfg.Database.URL); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
		logger.Info("migrations completed")
		return
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	provider, err := telemetry.InitializeOpenTelemetry(ctx, &telemetry.Config{
		ServiceName:    "collections-api",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SamplingRate:   cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	pool, err := database.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	registry, err := metrics.NewRegistry("collections-api")
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}

	feeRepo := repository.NewFeeRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	disputeRepo := repository.NewDisputeRepository(pool)
	dashRepo := repository.NewDashboardRepository(pool)
	trackingRepo := repository.NewTrackingRepository(pool)
	groupRepo := repository.NewGroupFeeRepository(pool)

	var kpiCache collectionsvc.KPICache
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(&cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer redisCache.Close()
		kpiCache = cache.NewKPICache(redisCache, cfg.Collection.KPICacheTTL)
	} else {
		logger.Warn("redis not configured, KPI reads will always recompute")
	}

	collectionService := collectionsvc.NewService(
		feeRepo, paymentRepo, disputeRepo, dashRepo,
		kpiCache, registry, logger,
	)
	trackingService := feetracking.NewService(trackingRepo, disputeRepo, logger)
	groupService := groupfee.NewService(groupRepo, logger)

	handler := rest.NewHandler(collectionService, trackingService, groupService, logger)
	auth := rest.NewAuthMiddleware(cfg.Security.JWTSecret)
	router := rest.NewRouter(handler, auth, logger)
	server := rest.NewServer(&cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return <-errCh
}

// migrateUp applies every pending migration. The pool speaks pgx but the
// migrate driver registers its own URL scheme.
func migrateUp(databaseURL string) error {
	url := strings.Replace(databaseURL, "postgres://", "pgx5://", 1)

	m, err := migrate.New("file://migrations", url)
	if err != nil {
		return fmt.Errorf("opening migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
