// Package main is the entry point for the dispatch worker.
//
// The dispatch worker consumes notifications from the Redis-backed queue,
// resolves recipients and media through the rule-matching engine, and delivers
// the materialized messages through the delivery router. It also serves a
// small HTTP endpoint for liveness and readiness probes.
//
// Startup:
//  1. Load and validate configuration.
//  2. Initialize structured logger.
//  3. Connect to Redis (queue backend + suppression markers) with retry.
//  4. Connect to PostgreSQL (record store).
//  5. Assemble engine, materializer, delivery router, and consumers.
//  6. Start the health server and the consumer pool.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
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
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"alertpipe/internal/config"
	"alertpipe/internal/delivery"
	"alertpipe/internal/dispatch"
	"alertpipe/internal/queue"
	"alertpipe/internal/records"
	"alertpipe/internal/types"
	"alertpipe/internal/worker"
)

// slogAdapter wraps *slog.Logger to implement the types.Logger interface.
// slog.Logger satisfies the leveled methods but With returns *slog.Logger,
// not types.Logger, so an adapter is necessary.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any) { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any) { a.logger.Warn(msg, args...) }
func (a *slogAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

// Compile-time assertion that slogAdapter implements types.Logger.
var _ types.Logger = (*slogAdapter)(nil)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("dispatch worker starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"queue", cfg.Worker.QueueName,
		"consumers", cfg.Worker.Consumers,
	)
	typedLogger := &slogAdapter{logger: logger}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis backs both the notification queue and the suppression markers.
	rdb, err := queue.Connect(ctx, queue.ConnectConfig{
		URL:            cfg.Redis.URL.Unmask(),
		RetryAttempts:  cfg.Redis.ConnectRetries,
		RetryInterval:  cfg.Redis.RetryInterval,
		ConnectTimeout: cfg.Redis.ConnectTimeout,
	})
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer rdb.Close()

	pool, err := newDBPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	store := records.NewPostgresStore(pool)
	transport := queue.NewTransport(queue.NewRedisLists(rdb), typedLogger)

	var policy dispatch.SuppressionPolicy = dispatch.AllowAll{}
	var marker worker.Marker
	if cfg.Redis.SuppressionTTL > 0 {
		interval := dispatch.NewIntervalPolicy(rdb, cfg.Redis.SuppressionTTL, typedLogger)
		policy = interval
		marker = interval
	}

	loc, err := time.LoadLocation(cfg.Worker.DefaultTimezone)
	if err != nil {
		return fmt.Errorf("invalid default timezone %q: %w", cfg.Worker.DefaultTimezone, err)
	}
	opts := dispatch.Options{DefaultTimezone: loc}

	engine := dispatch.NewEngine(store, policy, types.RealClock{}, typedLogger)
	materializer := dispatch.NewMaterializer(engine, store, typedLogger)

	// Webhook is the only gateway-backed medium in this deployment; the
	// remaining media log their deliveries until providers are wired in.
	router := delivery.NewRouter(typedLogger,
		delivery.NewWebhookSink(cfg.Webhook, typedLogger),
		delivery.NewLogSink(types.MediumEmail, typedLogger),
		delivery.NewLogSink(types.MediumSMS, typedLogger),
		delivery.NewLogSink(types.MediumJabber, typedLogger),
		delivery.NewLogSink(types.MediumPagerDuty, typedLogger),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.Pool(gctx, cfg.Worker.Consumers, func(i int) *worker.Consumer {
			return worker.NewConsumer(
				cfg.Worker.QueueName,
				transport,
				store,
				materializer,
				router,
				marker,
				opts,
				typedLogger.With("consumer", i),
			)
		})
	})

	g.Go(func() error {
		return runHealthServer(gctx, cfg, rdb, pool, transport, logger)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("dispatch worker stopped cleanly")
	return nil
}

// newDBPool builds a pgx pool from the database configuration.
func newDBPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	connectCtx, cancel := context.WithTimeout(ctx, cfg.AcquireTimeout+5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// runHealthServer serves liveness and readiness endpoints until the context
// is cancelled. Readiness verifies both backends and reports the current
// queue depth.
func runHealthServer(ctx context.Context, cfg *config.Config, rdb *redis.Client, pool *pgxpool.Pool, transport *queue.Transport, logger *slog.Logger) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		checkCtx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		if err := rdb.Ping(checkCtx).Err(); err != nil {
			http.Error(w, `{"status":"unready","reason":"redis"}`, http.StatusServiceUnavailable)
			return
		}
		if err := pool.Ping(checkCtx); err != nil {
			http.Error(w, `{"status":"unready","reason":"database"}`, http.StatusServiceUnavailable)
			return
		}
		depth, err := transport.Depth(checkCtx, cfg.Worker.QueueName)
		if err != nil {
			http.Error(w, `{"status":"unready","reason":"queue"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ready","queue_depth":%d}`, depth)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("health server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown error", "error", err)
	}
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
