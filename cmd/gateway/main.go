package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/regsense/assistant-gateway/internal/auth"
	"github.com/regsense/assistant-gateway/internal/classify"
	"github.com/regsense/assistant-gateway/internal/config"
	"github.com/regsense/assistant-gateway/internal/gateway"
	"github.com/regsense/assistant-gateway/internal/history"
	"github.com/regsense/assistant-gateway/internal/llm"
	"github.com/regsense/assistant-gateway/internal/rag"
	"github.com/regsense/assistant-gateway/internal/ratelimit"
	"github.com/regsense/assistant-gateway/internal/telemetry"
	"github.com/regsense/assistant-gateway/internal/upload"
)

var version = "dev"

func main() {
	configDir := flag.String("config", "configs", "path to configuration directory")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	loader := config.NewLoader(*configDir, logger)
	if err := loader.Load(); err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := loader.Watch(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	cfg := loader.Config()

	// Connect to PostgreSQL for the query audit log. The gateway serves
	// without it.
	var recorder *history.Recorder
	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		logger.Warn("failed to create database pool (query log disabled)", "error", err)
	} else {
		defer dbPool.Close()
		if err := dbPool.Ping(context.Background()); err != nil {
			logger.Warn("database not reachable (query log disabled)", "error", err)
		} else {
			logger.Info("database connected")
			recorder = history.NewRecorder(dbPool)
		}
	}

	// Connect to Redis for rate limiting; without it the limiter fails open.
	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not reachable (rate limiting disabled)", "error", err)
			rdb = nil
		} else {
			logger.Info("redis connected")
		}
	}

	metrics := telemetry.NewMetrics()

	store, err := upload.NewStore(cfg.Uploads)
	if err != nil {
		logger.Error("failed to initialize upload staging", "error", err)
		os.Exit(1)
	}

	generator := llm.New(cfg.LLM)
	logger.Info("classification escalation provider", "provider", generator.Name())

	classifier := classify.New(generator)
	ragClient := rag.NewHTTPClient(func() config.UpstreamConfig {
		return loader.Config().Upstream
	}, metrics.RecordUpstream)

	handler := gateway.NewHandler(classifier, store, ragClient,
		loader.Config, metrics, recorder)

	keyStore := auth.NewStaticKeyStore(cfg.Auth)
	if keyStore.Empty() {
		logger.Warn("no API keys configured, authentication is stubbed")
	}
	limiter := ratelimit.NewLimiter(rdb)

	// Router setup
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)

	// Unauthenticated routes
	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(keyStore))
		r.Use(ratelimit.Middleware(limiter, func() config.RateLimitConfig {
			return loader.Config().RateLimit
		}, metrics))

		r.Post("/api/query", handler.Query)
		r.Post("/api/query/classify", handler.Classify)

		r.Post("/api/rag/upload", handler.RAGUpload)
		r.Post("/api/rag/query", handler.RAGQuery)
		r.Post("/api/rag/full", handler.RAGFull)
		r.Post("/api/rag/analyze", handler.RAGAnalyze)
		r.Get("/api/rag/health", handler.RAGHealth)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("assistant gateway starting", "addr", addr, "version", version)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("assistant gateway stopped")
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := context.WithValue(r.Context(), requestIDKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type contextKey string

const requestIDKey contextKey = "request_id"

func generateRequestID() string {
	now := time.Now()
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("req_%d_%s", now.UnixMilli(), hex.EncodeToString(b))
}
