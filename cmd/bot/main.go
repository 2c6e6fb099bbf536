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
	"spacehub/internal/bot"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	core, err := app.Bootstrap(ctx, app.Options{Component: "bot-main"})
	if err != nil {
		return err
	}
	defer core.Close()

	if core.Telegram == nil {
		core.Logger.Error().Msg("telegram.bot_token is required for the bot")
		return errors.New("telegram bot token is not set")
	}

	var botMetrics *bot.Metrics
	if core.Config.Monitoring.PrometheusEnabled {
		botMetrics = bot.NewMetrics(prometheus.DefaultRegisterer)
		go serveMetrics(ctx, core.Config.Monitoring.PrometheusPort, core.Logger)
	}

	api.InvalidateListingsOn(core.Bus, core.Cache, core.Config.API.Cache, core.Logger)

	hostBot := bot.NewBot(core.Telegram, core.Config.Telegram, core.Cache, core.Users, core.Bookings, botMetrics, core.Logger)
	go func() {
		<-ctx.Done()
		hostBot.Stop()
	}()

	core.Logger.Info().Msg("bot started")
	hostBot.Start(ctx)
	core.Logger.Info().Msg("Shutdown complete.")
	return nil
}

func serveMetrics(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
