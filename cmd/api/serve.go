package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/orders-api/internal/handler/health"
	orderHandler "github.com/jwalitptl/orders-api/internal/handler/order"
	"github.com/jwalitptl/orders-api/internal/middleware"
	"github.com/jwalitptl/orders-api/internal/repository/postgres"
	"github.com/jwalitptl/orders-api/internal/router"
	orderService "github.com/jwalitptl/orders-api/internal/service/order"
	"github.com/jwalitptl/orders-api/pkg/auth"
	"github.com/jwalitptl/orders-api/pkg/messaging"
	"github.com/jwalitptl/orders-api/pkg/metrics"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP Server",
	Long:  `Starts the orders HTTP server and shuts it down gracefully on SIGINT or SIGTERM`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply pending migrations before serving")
}

func serve(ctx context.Context) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry, cfg.Metrics.Namespace)

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if migrateOnStart {
		n, err := postgres.Migrate(db, migrate.Up, 0)
		if err != nil {
			return err
		}
		appLogger.Info().Int("applied", n).Msg("migrations applied")
	}

	broker, err := newBroker(ctx)
	if err != nil {
		return err
	}
	defer broker.Close()

	repo := postgres.NewOrderRepository(db, m)
	prefetch := cache.New(cfg.Cache.TTL, cfg.Cache.CleanupInterval)
	svc := orderService.NewService(repo, messaging.NewPublisher(broker, cfg.Redis.Channel, m), prefetch, appLogger)

	routerConfig := router.RouterConfig{
		Mode:             cfg.Server.Mode,
		RequestTimeout:   cfg.Server.WriteTimeout,
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
		CORSConfig:       middleware.DefaultCORSConfig(),
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		Metrics:          m,
	}
	routerConfig.CORSConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	if cfg.Metrics.Enabled {
		routerConfig.Gatherer = registry
		routerConfig.MetricsPath = cfg.Metrics.Path
	}
	if cfg.Auth.Enabled {
		routerConfig.Auth = middleware.NewAuthMiddleware(auth.NewJWTService(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL))
	}

	r := router.NewRouter(routerConfig,
		health.NewHandler(repo),
		orderHandler.NewHandler(svc, orderHandler.Options{
			Filters:    cfg.Filters,
			Pagination: cfg.Pagination,
			Envelope:   cfg.Envelope,
			Metrics:    m,
		}),
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	appLogger.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	appLogger.Info().Msg("server exited properly")
	return nil
}
