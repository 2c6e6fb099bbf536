package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spacehub/internal/api"
	"spacehub/internal/app"
	"spacehub/internal/auth"
	"spacehub/internal/database"
	"spacehub/internal/metrics"
	"spacehub/internal/web"
	"spacehub/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	core, err := app.Bootstrap(ctx, app.Options{Component: "api-main", SyncSheets: true})
	if err != nil {
		return err
	}
	defer core.Close()

	cfg := core.Config
	logger := core.Logger

	if core.Worker != nil && core.Sheets != nil {
		go core.Worker.Start(ctx)
	}

	scheduler, err := worker.NewScheduler(core.DB, core.Notifier, core.Invoices, cfg.Booking.ReminderTime, cfg.Booking.OverdueCheckInterval, logger)
	if err != nil {
		return err
	}
	go scheduler.Start(ctx)

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(core.DB, cfg.Database.Path, cfg.Backup, logger)
		go backup.Start(ctx)
	}

	startMetrics(ctx, cfg.Monitoring.PrometheusEnabled, cfg.Monitoring.PrometheusPort, logger)

	issuer := auth.NewIssuer(cfg.API.Auth.JWTSecret, cfg.API.Auth.TokenTTL)
	pages, err := web.NewPages(cfg.API.HTTP, core.Services, issuer, logger)
	if err != nil {
		return fmt.Errorf("init pages: %w", err)
	}
	httpServer := api.NewHTTPServer(cfg.API, core.Services, issuer, core.DB, core.Cache, pages.Handler(), logger)
	pages.OnBookingChange(httpServer.InvalidateListings)

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(cfg.API.GRPC, logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
		grpcServer.AddProbe("storage", core.DB.PingContext)
		grpcServer.AddProbe("cache", func(ctx context.Context) error {
			_, _, err := core.Cache.Get(ctx, "health:probe")
			return err
		})
		go grpcServer.Watch(ctx, 0)
	}

	return serve(ctx, httpServer, grpcServer, cfg.API.HTTP.Port, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, grpcServer *api.GRPCServer, httpPort int, logger *zerolog.Logger) error {
	errCh := make(chan error, 2)

	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
		logger.Info().Str("grpc_addr", grpcServer.Addr()).Msg("grpc health server started")
	}
	logger.Info().Int("http_port", httpPort).Msg("API server started")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return runErr
}

func startMetrics(ctx context.Context, enabled bool, port int, logger *zerolog.Logger) {
	if !enabled {
		return
	}
	metrics.Register()
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
