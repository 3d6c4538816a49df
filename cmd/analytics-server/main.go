// cmd/analytics-server/main.go
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

	"github.com/prometheus/client_golang/prometheus"

	"product-analytics/internal/api"
	"product-analytics/internal/common/config"
	"product-analytics/internal/common/database"
	apperrors "product-analytics/internal/common/errors"
	"product-analytics/internal/common/logger"
	"product-analytics/internal/common/observability"
	"product-analytics/internal/llm"
	"product-analytics/internal/pipeline"
	"product-analytics/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func fatal(log logger.Logger, msg string, err error) {
	log.Error(msg, map[string]interface{}{"error": err.Error()})
	if z, ok := logger.Unwrap(log); ok {
		_ = z.Sync()
	}
	os.Exit(1)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.App.Name)
	if z, ok := logger.Unwrap(log); ok {
		defer func() { _ = z.Sync() }()
	}
	log.Info("Starting analytics server...", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
		"driver":      cfg.Database.Driver,
	})

	ctx := context.Background()

	// --- Tracing ---
	observers := []observability.Observer{}
	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracing(ctx, cfg.App, cfg.Tracing, log)
		if err != nil {
			fatal(log, "tracing init failed", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
		observers = append(observers, observability.NewOTelObserver(tp.Tracer(cfg.Tracing.ServiceName)))
	}

	if cfg.Tracing.SpanIndex != "" {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 5, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			fatal(log, "elasticsearch failed after retries", err)
		}

		sink := observability.NewSpanSink(esClient, cfg.Tracing.SpanIndex, cfg.Tracing.SpanBuffer, log)
		sink.Start()
		defer func() {
			sink.Close()
			if dropped := sink.Dropped(); dropped > 0 {
				log.Warn("span documents dropped", map[string]interface{}{"dropped": dropped})
			}
		}()
		observers = append(observers, sink)
		log.Info("Span sink started", map[string]interface{}{"index": cfg.Tracing.SpanIndex})
	}

	observer := observability.NewNoopObserver()
	if len(observers) > 0 {
		observer = observability.NewMultiObserver(observers...)
	}

	obs := observability.New(cfg.App.Name, prometheus.DefaultRegisterer, log)
	defer func() { _ = obs.Shutdown(context.Background()) }()

	// --- Product database with retry ---
	var db *database.SQLClient
	err = retryWithBackoff(func() error {
		var err error
		db, err = database.NewSQL(cfg.Database)
		if err != nil {
			return err
		}
		return db.Ping(ctx)
	}, 15, 2*time.Second, log, "Database connection")
	if err != nil {
		fatal(log, "database failed after retries", err)
	}
	defer db.Close()
	log.Info("Database connected successfully", map[string]interface{}{"dialect": string(db.Dialect)})

	// --- Rate limiter backed by Redis ---
	var limiter *api.RateLimiter
	if cfg.RateLimit.Enabled {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, log, "Redis connection")
		if err != nil {
			fatal(log, "redis failed after retries", err)
		}
		defer rdb.Close()

		limiter = api.NewRateLimiter(rdb, cfg.RateLimit.Requests, config.GetDuration(cfg.RateLimit.Window),
			apperrors.NewErrorHandler(log), log)
		log.Info("Rate limiter enabled", map[string]interface{}{
			"requests": cfg.RateLimit.Requests,
			"windowMs": cfg.RateLimit.Window,
		})
	}

	// --- Agents and pipeline ---
	agents, err := registry.LoadRegistry(cfg.LLM.RegistryPath)
	if err != nil {
		fatal(log, "agent registry load failed", err)
	}

	stream, err := pipeline.New(cfg, pipeline.Deps{
		DB:        db,
		Completer: llm.NewClient(cfg.LLM, log),
		Agents:    agents,
		Observer:  observer,
		Logger:    log,
	})
	if err != nil {
		fatal(log, "pipeline wiring failed", err)
	}

	server := api.NewServer(stream, db, log, api.Options{
		Limiter:       limiter,
		Observability: obs,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: config.GetDuration(cfg.Server.ReadTimeout),
		ReadTimeout:       config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout:      config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		log.Info("HTTP server listening", map[string]interface{}{"addr": httpServer.Addr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(log, "HTTP server failed", err)
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutdown signal received, draining streams...", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Analytics server stopped gracefully", nil)
}
