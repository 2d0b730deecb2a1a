package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/kartikbazzad/bunbase/bunstore/collection"
	"github.com/kartikbazzad/bunbase/bunstore/internal/api"
	"github.com/kartikbazzad/bunbase/bunstore/internal/memory"
	"github.com/kartikbazzad/bunbase/bunstore/internal/metrics"
	"github.com/kartikbazzad/bunbase/bunstore/internal/postgres"
	"github.com/kartikbazzad/bunbase/bunstore/pkg/config"
	"github.com/kartikbazzad/bunbase/bunstore/pkg/logger"
)

// AppConfig holds the service configuration
type AppConfig struct {
	Port       int    `mapstructure:"port"`
	SecretCode string `mapstructure:"secret_code"`
	Storage    struct {
		Driver string `mapstructure:"driver"` // postgres, memory
	} `mapstructure:"storage"`
	DB  postgres.Config `mapstructure:"db"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	RateLimit struct {
		PerMinute int `mapstructure:"per_minute"`
		Burst     int `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`
}

var defaults = map[string]any{
	"port":                  8080,
	"secret_code":           "",
	"storage.driver":        "postgres",
	"db.url":                "",
	"db.host":               "localhost",
	"db.port":               5432,
	"db.user":               "bunadmin",
	"db.password":           "bunpassword",
	"db.name":               "bunstore",
	"db.sslmode":            "disable",
	"log.level":             "INFO",
	"log.format":            "json",
	"rate_limit.per_minute": 600,
	"rate_limit.burst":      100,
}

func main() {
	// 1. Load Config
	var cfg AppConfig
	if err := config.LoadWithDefaults("BUNSTORE_", &cfg, defaults); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logger.Info("Starting bunstore...")

	if err := run(cfg); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func run(cfg AppConfig) error {
	log := logger.Get()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open storage
	storage, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	// 4. Load schemas
	m := metrics.New()
	collections, err := collection.NewCollections(ctx, storage, collection.WithSchemaHook(m.SchemaChanged))
	if err != nil {
		return fmt.Errorf("failed to load collections: %w", err)
	}
	log.Info("Loaded collections", "count", len(collections.Names()))

	// 5. Start HTTP Server
	gin.SetMode(gin.ReleaseMode)
	srv, err := api.NewServer(collections, m, api.Config{
		SecretCode:         cfg.SecretCode,
		RateLimitPerMinute: cfg.RateLimit.PerMinute,
		RateLimitBurst:     cfg.RateLimit.Burst,
	})
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStorage(ctx context.Context, cfg AppConfig) (collection.Storage, func(), error) {
	log := logger.Get()
	switch cfg.Storage.Driver {
	case "memory":
		log.Warn("Using in-memory storage; data is lost on exit")
		return memory.NewStore(), func() {}, nil
	case "postgres", "":
		dsn := cfg.DB.DSN()
		if err := postgres.Migrate(dsn); err != nil {
			return nil, nil, err
		}
		pool, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Connected to PostgreSQL")
		return postgres.NewStore(pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
