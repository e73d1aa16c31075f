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
	"github.com/go-chi/jwtauth"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/chi-demo/middleware"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/api"
	"github.com/tendant/simple-asset/pkg/simpleasset/config"
	"github.com/tendant/simple-asset/pkg/simpleasset/metrics"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("Server failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	serverConfig, err := config.Load(config.WithEnv())
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	defer serverConfig.Close()

	recorder, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	ctx := context.Background()
	svc, err := serverConfig.BuildService(ctx,
		simpleasset.WithMetrics(recorder),
		simpleasset.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}

	authMiddleware, err := authFromEnv()
	if err != nil {
		return err
	}

	handler := newRouter(svc, authMiddleware, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", serverConfig.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Simple Asset server starting",
			"port", serverConfig.Port,
			"env", serverConfig.Environment,
			"database", serverConfig.DatabaseType,
			"default_backend", serverConfig.DefaultStorageBackend,
			"max_asset_size", serverConfig.MaxAssetSize.String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exiting")
	return nil
}

// authFromEnv returns the middleware guarding the asset API. API_KEY_SHA256
// takes precedence over JWT_SECRET; with neither set the API is open.
func authFromEnv() (func(http.Handler) http.Handler, error) {
	if keyHash := os.Getenv("API_KEY_SHA256"); keyHash != "" {
		mw, err := middleware.ApiKeyMiddleware(middleware.ApiKeyConfig{
			APIKeys: map[string]string{"key1": keyHash},
		})
		if err != nil {
			return nil, fmt.Errorf("initialize API key middleware: %w", err)
		}
		return mw, nil
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		tokenAuth := jwtauth.New("HS256", []byte(secret), nil)
		return func(next http.Handler) http.Handler {
			return jwtauth.Verifier(tokenAuth)(jwtauth.Authenticator(next))
		}, nil
	}

	slog.Warn("No API_KEY_SHA256 or JWT_SECRET set, asset API is unauthenticated")
	return nil, nil
}

func newRouter(svc simpleasset.Service, auth func(http.Handler) http.Handler, logger *slog.Logger) http.Handler {
	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)
	metrics.Register(server.R, "/metrics", prometheus.DefaultGatherer)

	assetHandler := api.NewAssetHandler(svc)
	server.R.Group(func(r chi.Router) {
		r.Use(api.RequestIDMiddleware)
		r.Use(api.LoggingMiddleware(logger))
		r.Use(api.RecoveryMiddleware)
		if auth != nil {
			r.Use(auth)
		}
		assetHandler.Mount(r)
	})

	return server.R
}
