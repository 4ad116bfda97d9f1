package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ErlanBelekov/blog-cms/config"
	"github.com/ErlanBelekov/blog-cms/internal/auth"
	"github.com/ErlanBelekov/blog-cms/internal/cache"
	"github.com/ErlanBelekov/blog-cms/internal/email"
	"github.com/ErlanBelekov/blog-cms/internal/health"
	"github.com/ErlanBelekov/blog-cms/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/blog-cms/internal/log"
	"github.com/ErlanBelekov/blog-cms/internal/metrics"
	"github.com/ErlanBelekov/blog-cms/internal/storage"
	httptransport "github.com/ErlanBelekov/blog-cms/internal/transport/http"
	"github.com/ErlanBelekov/blog-cms/internal/transport/http/handler"
	"github.com/ErlanBelekov/blog-cms/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := ctxlog.NewLogger(os.Stdout, cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.UsesPlaceholderSecret() {
		logger.Warn("JWT_SECRET is the example placeholder; set a real secret before deploying")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, cfg.DatabaseURL); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		logger.Info("migrations applied")
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	deps := map[string]health.Pinger{"postgres": pool}

	// Cache
	cacheOpts := cache.Options{Namespace: cfg.CacheNamespace, DefaultTTL: cfg.PostsCacheTTL}
	var store cache.Store
	switch cfg.CacheBackend {
	case "redis":
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		redisStore := cache.NewRedisStore(rdb, cacheOpts)
		deps["redis"] = redisStore
		store = redisStore
	default:
		mem := cache.NewMemoryStore(cacheOpts)
		sweeper, err := cache.NewSweeper(mem, cfg.CacheSweepSpec, logger)
		if err != nil {
			log.Fatalf("cache sweeper: %v", err)
		}
		go sweeper.Start(ctx)
		store = mem
	}

	// Auth
	tokens, err := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.JWTTTL)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}
	userRepo := postgres.NewUserRepository(pool)
	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	authUsecase := usecase.NewAuthUsecase(userRepo, tokens, sender, usecase.RegistrationPolicy{
		Enabled: cfg.RegistrationEnabled,
		Secret:  cfg.RegistrationSecret,
	}, logger)
	authHandler := handler.NewAuthHandler(authUsecase, logger)

	// Posts
	postRepo := postgres.NewPostRepository(pool, logger)
	categoryRepo := postgres.NewCategoryRepository(pool)
	postUsecase := usecase.NewPostUsecase(postRepo, categoryRepo, store, cfg.PostsCacheTTL, logger)
	postHandler := handler.NewPostHandler(postUsecase, logger)

	// Uploads
	var uploader *storage.Uploader
	if cfg.StorageConfigured() {
		uploader, err = storage.NewR2Uploader(ctx, storage.Config{
			AccountID:       cfg.R2AccountID,
			Endpoint:        cfg.R2Endpoint,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			Bucket:          cfg.R2Bucket,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
	} else {
		logger.Warn("object storage not configured; uploadUrl will answer 503")
	}
	uploadHandler := handler.NewUploadHandler(uploader, logger)

	metrics.Register()
	checker := health.NewChecker(deps, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httptransport.NewRouter(logger, authHandler, postHandler, uploadHandler, authUsecase),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port, "cache", cfg.CacheBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}
