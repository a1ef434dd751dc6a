// Command server runs the flight-reservation RPC dispatcher: it binds the
// UDP socket, seeds the reservation store, and serves services 1-6 until
// terminated.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	_ "go.uber.org/automaxprocs"

	"github.com/flightres/rpc/internal/bus"
	"github.com/flightres/rpc/internal/server"
	"github.com/flightres/rpc/internal/store"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging (overrides RPC_LOG_LEVEL)")
	flag.Parse()

	bootstrapLogger := server.NewLogger("info", "json")
	bootstrapLogger.Info().Int("gomaxprocs", runtime.GOMAXPROCS(0)).Msg("starting server")

	cfg, err := server.LoadConfig(&bootstrapLogger)
	if err != nil {
		bootstrapLogger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := server.NewLogger(cfg.LogLevel, cfg.LogFormat)
	cfg.Print()
	cfg.LogConfig(logger)

	var st store.Store
	switch cfg.StoreBackend {
	case "sqlite":
		st, err = store.OpenSQLite(cfg.SQLiteDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open sqlite store")
		}
	default:
		st = store.NewMemory()
	}

	reg := prometheus.NewRegistry()
	metrics := server.NewMetrics(reg)
	notificationBus := bus.New()

	srv := server.New(cfg, st, notificationBus, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	g.Go(func() error {
		return server.RunSystemStatsLoop(gctx, cfg.StatsInterval, metrics, logger)
	})

	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
	logger.Info().Msg("server shut down cleanly")
}
