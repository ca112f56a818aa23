package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"

	"github.com/lucasrcosta20/IA-Cadastro/config"
	"github.com/lucasrcosta20/IA-Cadastro/internal/app"
	httpDelivery "github.com/lucasrcosta20/IA-Cadastro/internal/delivery/http"
	"github.com/lucasrcosta20/IA-Cadastro/internal/platform/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	if err := logger.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}

	log.WithFields(log.Fields{
		"version":     httpDelivery.Version,
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
	}).Info("starting IA-Cadastro server")

	// Initialize components
	application, err := app.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize")
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.WithError(err).Error("failed to flush cache")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if application.Service.IsAvailable(ctx) {
		log.WithField("ollama", application.Client.BaseURL()).Info("ollama server reachable")
	} else {
		log.WithField("ollama", application.Client.BaseURL()).Warn("ollama server not reachable, generation requests will fail until it is up")
	}

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(application.Service, application.Templater)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("server failed")
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}
}
