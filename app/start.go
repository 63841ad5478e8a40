package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const shutdownTimeout = 10 * time.Second

// Run starts the announcer and the HTTP servers, then blocks until ctx is
// cancelled and shuts them down.
func (app *App) Run(ctx context.Context) error {
	logger := app.Observability.Logger

	if app.AnnounceModule != nil {
		if err := app.AnnounceModule.Start(ctx); err != nil {
			return err
		}
	}

	app.server = &http.Server{
		Addr:              app.Config.HTTP.Address,
		Handler:           app.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serverErr := make(chan error, 2)
	go func() {
		logger.Info("Starting HTTP server", slog.String("address", app.server.Addr))
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("http server: %w", err)
		}
	}()

	if addr := app.Config.Observability.MetricsAddress; addr != "" && addr != app.Config.HTTP.Address {
		mux := http.NewServeMux()
		mux.Handle("/metrics", app.metricsHandler())
		app.metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("Starting metrics server", slog.String("address", addr))
			if err := app.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down application...")
	case runErr = <-serverErr:
		logger.Error("Server failed", slog.Any("error", runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.Any("error", err))
	}
	if app.metricsServer != nil {
		if err := app.metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown failed", slog.Any("error", err))
		}
	}
	return runErr
}
