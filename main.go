// Package main provides the main entry point for the StroomAlert outage campaign engine
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/stroomalert/stroomalert/app/handlers"
	"github.com/stroomalert/stroomalert/app/router"
	"github.com/stroomalert/stroomalert/app/scheduler"
	"github.com/stroomalert/stroomalert/app/services"
	businessflow "github.com/stroomalert/stroomalert/business_flow"
	"github.com/stroomalert/stroomalert/config"
	"github.com/stroomalert/stroomalert/models"
	"github.com/stroomalert/stroomalert/repository"
	"github.com/stroomalert/stroomalert/utils"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	stopFuncs []func()
}

func main() {
	log.Println("Starting StroomAlert application...")

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := setupLogging(cfg.Logging)

	app, err := initializeApplication(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.router.GetApp().ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// setupLogging builds the application logger. File output rotates through
// lumberjack so long running deployments do not fill the disk.
func setupLogging(cfg config.LoggingConfig) *log.Logger {
	var out io.Writer = os.Stdout

	if cfg.Output == "file" || cfg.Output == "both" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		if cfg.Output == "both" {
			out = io.MultiWriter(os.Stdout, rotating)
		} else {
			out = rotating
		}
	}

	logger := log.New(out, "", log.LstdFlags|log.LUTC)
	log.SetOutput(out)
	return logger
}

// initializeApplication wires repositories, flows, the scheduler and the HTTP layer
func initializeApplication(cfg *config.ProductionConfig, logger *log.Logger) (*Application, error) {
	var stopFuncs []func()

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		stopFuncs = append(stopFuncs, func() { _ = rc.Close() })
	}

	stateRepo, err := initializeStateRepository(cfg)
	if err != nil {
		return nil, err
	}

	// Restore persisted state before the first poll cycle
	state := businessflow.NewEngineState()
	restoreCtx, restoreCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer restoreCancel()
	snapshot, err := stateRepo.LoadState(restoreCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to restore engine state: %w", err)
	}
	state.Restore(snapshot)
	active, resolved := state.Incidents.Counts()
	state.Events.Append(models.EventStateRestored, "engine state restored from persistence", map[string]any{
		"active_incidents":   active,
		"resolved_incidents": resolved,
	}, utils.UTCNow())
	logger.Printf("Engine state restored: %d active, %d resolved outages", active, resolved)

	// Platform clients; dry-run swaps in mocks that never spend money
	var googleClient, metaClient services.AdPlatformClient
	if cfg.Engine.DryRun {
		logger.Println("Dry-run mode: using mock ad platform clients")
		googleClient = services.NewMockPlatformClient()
		metaClient = services.NewMockPlatformClient()
	} else {
		googleClient = services.NewGoogleAdsClient(&cfg.Google)
		metaClient = services.NewMetaAdsClient(&cfg.Meta)
	}

	var source services.OutageSource
	if cfg.Engine.DryRun && cfg.Source.FeedURL == "" {
		source = &services.StaticOutageSource{}
	} else {
		source = services.NewHTTPOutageSource(&cfg.Source)
	}

	budget := businessflow.NewBudgetController(state.Ledger, cfg.Engine)
	reconcileFlow := businessflow.NewReconcileFlow(state, cfg.Engine, logger)
	campaignFlow := businessflow.NewCampaignFlow(state, budget, googleClient, metaClient, cfg.Engine, logger)

	pollScheduler := scheduler.NewPollScheduler(source, reconcileFlow, campaignFlow, state, stateRepo, rc, cfg, logger)
	stopScheduler := pollScheduler.Start(context.Background())
	stopFuncs = append(stopFuncs, stopScheduler)

	engineHandler := handlers.NewEngineHandler(campaignFlow, pollScheduler, rc, cfg.Cache)
	fiberRouter := router.NewFiberRouter(engineHandler, cfg)

	return &Application{
		router:    fiberRouter,
		config:    cfg,
		stopFuncs: stopFuncs,
	}, nil
}

// initializeStateRepository selects the persistence backend
func initializeStateRepository(cfg *config.ProductionConfig) (repository.StateRepository, error) {
	switch cfg.Engine.PersistenceBackend {
	case "postgres":
		db, err := initializeDatabase(cfg.Database)
		if err != nil {
			return nil, err
		}
		return repository.NewPostgresStateRepository(db)
	default:
		return repository.NewFileStateRepository(cfg.Engine.StateDir, log.Default())
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache connects to redis when caching is enabled
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established (db=%d)", cfg.RedisDB)
	return rc, nil
}
