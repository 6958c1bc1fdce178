// Package main provides the main entry point for the Susanoo link shortener
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/amirphl/Susanoo/app/handlers"
	"github.com/amirphl/Susanoo/app/middleware"
	"github.com/amirphl/Susanoo/app/router"
	"github.com/amirphl/Susanoo/app/scheduler"
	"github.com/amirphl/Susanoo/app/services"
	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/amirphl/Susanoo/config"
	_ "github.com/amirphl/Susanoo/docs"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	logCloser io.Closer
	stopFuncs []func()
}

func main() {
	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logCloser, err := utils.ConfigureLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logger: %v", err)
	}
	logrus.WithFields(logrus.Fields{
		"version":     cfg.Deployment.Version,
		"environment": cfg.Deployment.Environment,
	}).Info("Starting Susanoo link shortener")

	app, err := initializeApplication(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize application")
	}
	app.logCloser = logCloser

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-sigChan
	logrus.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Error during shutdown")
	}

	// Background workers drain after the server stops accepting visits.
	for i := len(app.stopFuncs) - 1; i >= 0; i-- {
		app.stopFuncs[i]()
	}

	logrus.Info("Server stopped")
	if app.logCloser != nil {
		_ = app.logCloser.Close()
	}
}

// initializeDatabase opens postgres (or sqlite for local runs) with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	}
	if cfg.SlowQueryLog {
		gormCfg.Logger = logger.New(logrus.StandardLogger(), logger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.SQLitePath + "?_foreign_keys=1&_busy_timeout=5000")
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(models.All()...); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"driver":         cfg.Driver,
		"max_open_conns": cfg.MaxOpenConns,
		"max_idle_conns": cfg.MaxIdleConns,
	}).Info("Database connection established")

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logrus.WithField("db", opt.DB).Info("Redis connection established")
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logrus.WithError(err).Warn("Redis healthcheck failed")
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication wires repositories, flows, handlers and background workers
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stopFuncs = append(stopFuncs, func() {
		if err := sqlDB.Close(); err != nil {
			logrus.WithError(err).Warn("failed to close database")
		}
	})

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		stopFuncs = append(stopFuncs, func() { _ = rc.Close() })
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.HealthCheckInterval))
	}

	// Repositories
	linkRepo := repository.NewLinkRepository(db)
	clickRepo := repository.NewClickRepository(db)
	slugStateRepo := repository.NewSlugStateRepository(db)
	userRepo := repository.NewUserRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	apiKeyRepo := repository.NewAPIKeyRepository(db)
	linkTargets := repository.NewCachedLinkTargetReader(linkRepo, rc, cfg.Cache.RedisPrefix, cfg.Cache.LinkTTL)

	// Enrichment
	var geo services.GeoLocator
	if cfg.Geolocation.Enabled {
		geo = services.NewGeoChainFromConfig(cfg.Geolocation)
	}
	enricher := businessflow.NewEnrichmentFlow(clickRepo, geo)
	worker := scheduler.NewEnrichmentWorker(enricher, cfg.Enrichment)
	stopFuncs = append(stopFuncs, worker.Start(context.Background()))

	// Business flows
	slugs, err := businessflow.NewSlugGenerator(linkRepo, slugStateRepo, cfg.Metrics.Path, cfg.Shortener.InterstitialPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create slug generator: %w", err)
	}
	recorder := businessflow.NewClickRecorder(linkRepo, clickRepo)
	redirectFlow := businessflow.NewRedirectFlow(linkTargets, recorder, worker, cfg.Shortener.InterstitialPath)
	linkFlow := businessflow.NewLinkFlow(linkRepo, teamRepo, slugs, linkTargets, cfg.Shortener.BaseURL)
	statsFlow := businessflow.NewLinkStatsFlow(linkRepo, clickRepo, teamRepo)
	workspaceStatsFlow := businessflow.NewWorkspaceStatsFlow(linkRepo, clickRepo, teamRepo)
	apiKeyFlow := businessflow.NewAPIKeyFlow(apiKeyRepo, cfg.Security.BcryptCost)

	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	h := router.Handlers{
		Redirect: handlers.NewRedirectHandler(redirectFlow, cfg.Shortener),
		Links:    handlers.NewLinkHandler(linkFlow, statsFlow, workspaceStatsFlow, cfg.Server.RequestTimeout),
		APIKeys:  handlers.NewAPIKeyHandler(apiKeyFlow, cfg.Server.RequestTimeout),
		Auth:     middleware.NewAuthMiddleware(tokenService, userRepo, apiKeyFlow, cfg.Security.APIKeyHeader),
	}

	checks := map[string]router.HealthCheck{
		"database": sqlDB.PingContext,
	}
	if rc != nil {
		checks["redis"] = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
	}

	appRouter := router.NewFiberRouter(cfg, h, checks)

	return &Application{
		router:    appRouter,
		config:    cfg,
		server:    appRouter.GetApp(),
		stopFuncs: stopFuncs,
	}, nil
}
