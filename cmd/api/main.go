// Package main is the entrypoint for the accountd API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/accountd/accountd/internal/auth"
	"github.com/accountd/accountd/internal/bootstrap"
	"github.com/accountd/accountd/internal/cache"
	"github.com/accountd/accountd/internal/config"
	"github.com/accountd/accountd/internal/handler"
	"github.com/accountd/accountd/internal/metrics"
	"github.com/accountd/accountd/internal/middleware"
	"github.com/accountd/accountd/internal/repository"
	"github.com/accountd/accountd/internal/server"
	"github.com/accountd/accountd/internal/service"
	"github.com/accountd/accountd/internal/storage"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database pool. Connectivity is probed by the bootstrap
	// sequence below, with retries, not here.
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to configure database pool",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	hasher := auth.NewBcryptHasher()

	// Startup sequence: probe connectivity with retries, create the
	// accounts table when missing, seed the defaults.
	if !bootstrap.New(repo, repo, hasher, logger).Run(ctx) {
		os.Exit(1)
	}

	// Initialize services
	recorder := metrics.NewNoop()
	accountService := service.NewAccountService(repo, hasher, logger, recorder)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(repo, logger)
	accountHandler := handler.NewAccountHandler(accountService, logger)

	var imageHandler *handler.ImageHandler
	if cfg.ImagesEnabled() {
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			logger.Error("failed to configure object storage", slog.String("error", err.Error()))
			os.Exit(1)
		}
		imageService := service.NewImageService(store, cfg.S3Bucket, logger)
		imageHandler = handler.NewImageHandler(accountService, imageService, logger)
		logger.Info("profile images enabled", slog.String("bucket", cfg.S3Bucket))
	}

	// Setup router
	r := handler.NewRouter(handler.RouterConfig{
		Logger:      logger,
		Health:      healthHandler,
		Accounts:    accountHandler,
		Images:      imageHandler,
		MaxBodySize: cfg.MaxRequestBodySize,
		Auth: middleware.BasicAuthConfig{
			Logger:   logger,
			Accounts: repo,
			Hasher:   hasher,
			Cache:    cacheClient,
			Recorder: recorder,
		},
	})

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
