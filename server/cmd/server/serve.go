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

	"github.com/spf13/cobra"

	"github.com/regionpulse/regionpulse/server/internal/api"
	"github.com/regionpulse/regionpulse/server/internal/config"
	"github.com/regionpulse/regionpulse/server/internal/metrics"
	"github.com/regionpulse/regionpulse/server/internal/store"
	"github.com/regionpulse/regionpulse/server/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the telemetry dataset and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	return cmd
}

func serve(ctx context.Context, configPath string) error {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("regionpulse starting", "version", Version, "config", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return err
	}
	level.Set(cfg.Log.SlogLevel())

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"telemetry_path", cfg.Telemetry.Path,
		"allowed_origin", cfg.Server.CORS.AllowedOrigin,
		"ws_enabled", cfg.Server.WS.Enabled,
		"log_level", cfg.Log.Level,
	)

	// The dataset is loaded once; nothing below may serve before it succeeds.
	st, err := store.Load(cfg.Telemetry.Path)
	if err != nil {
		slog.Error("failed to load telemetry", "path", cfg.Telemetry.Path, "err", err)
		return err
	}
	slog.Info("telemetry loaded", "records", st.Len(), "regions", len(st.Regions()))

	reg := metrics.New(st.Len())

	go func() {
		if err := config.Watch(ctx, configPath, func(updated *config.Config) {
			level.Set(updated.Log.SlogLevel())
			slog.Info("log level updated", "level", updated.Log.Level)
			if restartNeeded(cfg, updated) {
				slog.Warn("config changed in fields that only apply on restart")
			}
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	httpMux := http.NewServeMux()
	apiHandler := api.New(st, api.Options{
		AllowedOrigin: cfg.Server.CORS.AllowedOrigin,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
		Metrics:       reg,
	})
	httpMux.Handle("/api", apiHandler)
	httpMux.Handle("/api/", apiHandler)
	httpMux.Handle("/healthz", apiHandler)
	httpMux.Handle("/metrics", reg)

	if cfg.Server.WS.Enabled {
		hub := ws.New(st, ws.Options{
			AllowedOrigin: cfg.Server.CORS.AllowedOrigin,
			ReadLimit:     cfg.Server.MaxBodyBytes,
			Metrics:       reg,
		})
		go hub.Run(ctx)
		httpMux.Handle("/ws/aggregate", hub)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("HTTP server stopped", "err", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("regionpulse shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// restartNeeded reports whether b differs from a in anything other than the
// log level, which is the only setting applied live.
func restartNeeded(a, b *config.Config) bool {
	return a.Server != b.Server || a.Telemetry != b.Telemetry
}
