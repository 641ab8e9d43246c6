package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-task-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-task-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-task-go/internal/ratelimit"
	"github.com/ovaphlow/pitchfork/service-task-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-task-go/internal/store"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, sugar, sync, err := bootstrap()
	if err != nil {
		return err
	}
	defer sync()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow("starting taskd", "addr", cfg.HTTP.Addr, "store", cfg.Store.Driver, "api_prefix", cfg.HTTP.APIPrefix)

	st, err := store.Open(ctx, cfg.Store, sugar)
	if err != nil {
		sugar.Errorw("store connect failed", "driver", cfg.Store.Driver, "err", err)
		return oops.In("bootstrap").With("driver", cfg.Store.Driver).Wrap(err)
	}
	if err := st.EnsureSchema(ctx); err != nil {
		_ = st.Close(context.Background())
		return oops.In("bootstrap").With("driver", cfg.Store.Driver).Wrapf(err, "ensure schema")
	}

	secret, err := jwtSecret(cfg, sugar)
	if err != nil {
		_ = st.Close(context.Background())
		return err
	}
	limiter, closeLimiter := newLimiter(ctx, cfg.RateLimit, sugar)
	defer closeLimiter()

	handler := router.RegisterRoutes(router.Deps{
		Logger:  sugar,
		HTTP:    cfg.HTTP,
		Store:   st,
		Tokens:  auth.NewTokenManager(secret, cfg.Auth.JWTExpire),
		Hasher:  auth.BcryptHasher{Cost: cfg.Auth.BcryptCost},
		Limiter: limiter,
		Metrics: metrics.New(),
		Started: time.Now(),
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// run server in background
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	sugar.Infow("http server listening", "addr", cfg.HTTP.Addr)

	var runErr error
	select {
	case <-ctx.Done():
		sugar.Info("shutting down")
	case err := <-serveErr:
		sugar.Errorw("http server failed", "err", err)
		runErr = err
	}

	doneCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnw("http server shutdown failed", "err", err)
	}
	// the store outlives the last in-flight request
	if err := st.Close(doneCtx); err != nil {
		sugar.Warnw("store close failed", "err", err)
	}

	sugar.Info("goodbye")
	return runErr
}

// jwtSecret returns the configured secret. The memory driver may run without
// one; tokens then do not survive a restart, which matches its data.
func jwtSecret(cfg *config.Config, logger *zap.SugaredLogger) (string, error) {
	if cfg.Auth.JWTSecret != "" {
		return cfg.Auth.JWTSecret, nil
	}
	if cfg.Store.Driver != config.DriverMemory {
		return "", errors.New("JWT_SECRET is required")
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	logger.Warnw("JWT_SECRET not set, using a random secret for this process")
	return hex.EncodeToString(buf), nil
}

// newLimiter prefers the shared Redis limiter and falls back to a per-process
// one when REDIS_URL is unset or invalid.
func newLimiter(ctx context.Context, cfg config.RateLimitConfig, logger *zap.SugaredLogger) (ratelimit.Limiter, func()) {
	if cfg.RedisURL == "" {
		logger.Infow("rate limiter", "backend", "local", "max", cfg.Max, "window", cfg.Window)
		return ratelimit.NewLocalLimiter(cfg.Max, cfg.Window), func() {}
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warnw("invalid REDIS_URL, using local rate limiter", "err", err)
		return ratelimit.NewLocalLimiter(cfg.Max, cfg.Window), func() {}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnw("redis unreachable, requests pass until it recovers", "addr", opts.Addr, "err", err)
	}
	logger.Infow("rate limiter", "backend", "redis", "addr", opts.Addr, "max", cfg.Max, "window", cfg.Window)
	return ratelimit.NewRedisLimiter(client, "taskd:ratelimit:", cfg.Max, cfg.Window), func() { _ = client.Close() }
}
