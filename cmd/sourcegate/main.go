package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/groundline-systems/sourcegate/internal/config"
	"github.com/groundline-systems/sourcegate/internal/dlq"
	"github.com/groundline-systems/sourcegate/internal/handlers"
	"github.com/groundline-systems/sourcegate/internal/middleware"
	"github.com/groundline-systems/sourcegate/internal/pipeline"
	"github.com/groundline-systems/sourcegate/internal/ratelimit"
	"github.com/groundline-systems/sourcegate/internal/registry"
	"github.com/groundline-systems/sourcegate/internal/server"
	"github.com/groundline-systems/sourcegate/internal/storage"
	"github.com/groundline-systems/sourcegate/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("sourcegate"))
	logging.SetDefault(logger)

	slog.Info("Starting SourceGate",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("log_format", cfg.Logging.Format),
	)
	if *configPath != "" {
		slog.Info("Loaded configuration", slog.String("config_path", *configPath))
	}

	log.Println("Running database migrations...")
	m, err := migrate.New("file://migrations", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to initialize migrations: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to create database pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to reach database: %v", err)
	}
	cancel()
	defer pool.Close()

	typeRegistry := registry.NewInstrumented(registry.NewPostgresRegistryFromPool(pool))
	store := storage.NewDocumentStoreFromPool(pool)
	validationPipeline := pipeline.New(typeRegistry)

	// Rate limiter
	var rateLimiter ratelimit.RateLimiter
	if cfg.Redis.Enabled && cfg.Ingestion.RateLimitEnabled {
		limiter, err := ratelimit.NewRedisRateLimiter(
			cfg.Redis.URL,
			cfg.Ingestion.RateLimitRequests,
			cfg.Ingestion.RateLimitWindow,
		)
		if err != nil {
			log.Printf("WARNING: Failed to initialize Redis rate limiter: %v", err)
			log.Println("Continuing without rate limiting")
			rateLimiter = &ratelimit.NoOpRateLimiter{}
		} else {
			rateLimiter = limiter
			log.Printf("Rate limiting enabled: %d requests per %s", cfg.Ingestion.RateLimitRequests, cfg.Ingestion.RateLimitWindow)
		}
	} else {
		rateLimiter = &ratelimit.NoOpRateLimiter{}
		log.Println("Rate limiting disabled")
	}
	defer rateLimiter.Close()

	// Dead Letter Queue
	var dlqWriter dlq.Writer = dlq.NoOpWriter{}
	if cfg.DLQ.Enabled {
		jsDLQ, err := dlq.NewJetStreamQueue(context.Background(), cfg.DLQ.NatsURL)
		if err != nil {
			log.Fatalf("Failed to initialize JetStream DLQ: %v", err)
		}
		dlqWriter = jsDLQ
		defer jsDLQ.Close()
		log.Printf("Dead Letter Queue enabled (nats: %s)", cfg.DLQ.NatsURL)
	} else {
		log.Println("Dead Letter Queue disabled")
	}

	// Authentication
	var authenticator *middleware.Authenticator
	if cfg.Auth.Enabled {
		if cfg.Auth.Secret == "" {
			log.Fatal("auth.enabled is true but auth.secret is empty")
		}
		authenticator = middleware.NewAuthenticator(cfg.Auth.Secret, cfg.Auth.Issuer)
		log.Printf("Bearer-token authentication enabled (issuer: %s)", cfg.Auth.Issuer)
	} else {
		log.Println("Authentication disabled")
	}

	sourceHandler := handlers.NewSourceHandler(validationPipeline, store, dlqWriter, logger, cfg.Ingestion.MaxUploadSize)
	typesHandler := handlers.NewTypesHandler(typeRegistry, logger)
	healthHandler := handlers.NewHealthHandler(store)

	router := server.NewRouter(server.Options{
		Sources: sourceHandler,
		Types:   typesHandler,
		Health:  healthHandler,
		Auth:    authenticator,
		Limiter: rateLimiter,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("SourceGate listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
