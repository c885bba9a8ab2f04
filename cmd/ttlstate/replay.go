package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ttlstate "github.com/karupanerura/ttl-state"
	"github.com/karupanerura/ttl-state/internal/config"
	"github.com/karupanerura/ttl-state/internal/logging"
	"github.com/karupanerura/ttl-state/internal/replay"
	"github.com/karupanerura/ttl-state/metrics/prommetrics"
	"github.com/karupanerura/ttl-state/sweeper"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay SCRIPT",
	Short: "Replay a YAML script of chat events",
	Long: `Replays every session of the script on its own goroutine.
/start sets the session state, /status reads it, /stop finishes it, and wait pauses the session.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}
		script, err := replay.LoadScript(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var metrics ttlstate.Metrics = ttlstate.NoopMetrics{}
		if cfg.Metrics.Addr != "" {
			collector := prommetrics.New(cfg.Metrics.Namespace)
			registry := prometheus.NewRegistry()
			registry.MustRegister(collector)
			metrics = collector

			shutdown := serveMetrics(cfg.Metrics.Addr, registry, logger)
			defer shutdown()
		}

		store, err := replay.NewStore(cfg, ttlstate.SystemClock, metrics, logger)
		if err != nil {
			return err
		}
		if cfg.Sweep.Interval > 0 {
			sweeper.NewIntervalSweeper(store.Cache(), cfg.Sweep.Interval, func(err error) {
				logger.Warn("sweep failed", "error", err)
			}).OnSwept(func(removed int) {
				logger.Debug("swept sessions", "removed", removed)
			}).LaunchBackgroundSweeper(ctx)
		}

		return replay.NewRunner(store, cmd.OutOrStdout(), logger).Run(ctx, script)
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	return logging.New(os.Stderr, level, format), nil
}

func serveMetrics(addr string, gatherer prometheus.Gatherer, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("starting metrics server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
