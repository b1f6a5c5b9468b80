// Package app provides application lifecycle management for the inventory sync server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/voyagedesk/inventory-sync/internal/app/storage"
	"github.com/voyagedesk/inventory-sync/internal/config"
	"github.com/voyagedesk/inventory-sync/internal/logger"
)

// SyncApp encapsulates all components needed to run the inventory sync server
// It provides lifecycle management and graceful shutdown capabilities
type SyncApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	storageFactory storage.Factory
	closeLocker    func() error

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start recovers interrupted runs, starts the scheduler and serves HTTP.
// This method blocks until the HTTP server stops or encounters an error
func (app *SyncApp) Start() error {
	recovered, err := app.components.Orchestrator.Recover(app.ctx)
	if err != nil {
		return fmt.Errorf("failed to recover interrupted runs: %w", err)
	}
	if recovered > 0 {
		logger.Warnf("Marked %d interrupted run(s) as failed", recovered)
	}

	// Start scheduler in background
	go func() {
		if err := app.components.Scheduler.Start(app.ctx); err != nil {
			logger.Errorf("Sync scheduler failed: %v", err)
		}
	}()

	logger.Infof("Server listening on %s", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application with the given timeout.
// The scheduler stops first so no new runs start, then the HTTP server
// drains, then in-flight runs are cancelled and finalized.
func (app *SyncApp) Stop(timeout time.Duration) error {
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error

	if err := app.components.Scheduler.Stop(); err != nil {
		logger.Errorf("Failed to stop scheduler: %v", err)
	}

	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
	}

	if err := app.components.Orchestrator.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop in-flight runs: %w", err))
	}

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	if app.closeLocker != nil {
		if err := app.closeLocker(); err != nil {
			logger.Warnf("Failed to close lock client: %v", err)
		}
	}
	if app.storageFactory != nil {
		app.storageFactory.Cleanup()
	}

	if err := app.components.Telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("Failed to flush telemetry: %v", err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	logger.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *SyncApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *SyncApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// Components returns the wired components
func (app *SyncApp) Components() *AppComponents {
	return app.components
}
