package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/tendant/flex-cms/pkg/flexcms"
	"github.com/tendant/flex-cms/pkg/flexcms/api"
	"github.com/tendant/flex-cms/pkg/flexcms/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	serverConfig, err := config.Load(config.WithEnv())
	if err != nil {
		logger.Error("Failed to load server configuration", "error", err)
		os.Exit(1)
	}

	svc, err := serverConfig.BuildService(logger)
	if err != nil {
		logger.Error("Failed to build service", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverConfig.Port),
		Handler: routes(svc),
	}

	go func() {
		logger.Info("Content server starting",
			"port", serverConfig.Port,
			"env", serverConfig.Environment,
			"content_types", len(svc.Schema().Slugs()),
			"storage", serverConfig.StorageType)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("Server exiting")
}

func routes(svc flexcms.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Get("/schema", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, svc.Schema().Slugs())
	})

	r.Mount("/api/records", api.NewRecordHandler(svc).Routes())
	r.Mount("/api/media", api.NewMediaHandler(svc).Routes())

	return r
}
