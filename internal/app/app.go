// Package app initializes and runs the service: configuration, logging,
// storage, password hashing, business operations and routing, with graceful
// shutdown on termination signals.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vtarasenko/addrbook/internal/config"
	"github.com/vtarasenko/addrbook/internal/db/postgresdb"
	"github.com/vtarasenko/addrbook/internal/db/storage"
	"github.com/vtarasenko/addrbook/internal/hasher"
	"github.com/vtarasenko/addrbook/internal/logger"
	"github.com/vtarasenko/addrbook/internal/router"
	"github.com/vtarasenko/addrbook/internal/service"
	"github.com/vtarasenko/addrbook/internal/validation"
)

const shutdownTimeout = 10 * time.Second

// App bundles the configuration, storage backend and HTTP handler needed to
// run the service.
type App struct {
	cfg         *config.Config
	db          storage.Storage
	httpHandler http.Handler
}

// New wires the application:
// - loads configuration
// - initializes the logger
// - connects to the store and runs migrations
// - builds the validator, hasher, service and router.
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if app.cfg.DatabaseDSN == "" {
		return nil, errors.New("database DSN is required")
	}

	app.db, err = postgresdb.New(context.Background(), app.cfg.DatabaseDSN, app.cfg.DBQueryTimeout)
	if err != nil {
		return nil, err
	}

	validator, err := validation.New()
	if err != nil {
		return nil, err
	}

	app.httpHandler = router.New(service.New(
		app.db,
		hasher.New(app.cfg.HasherWorkers),
		validator,
	))

	return app, nil
}

// Run starts the HTTP server and blocks until a termination signal or a
// server error. Resources are released before returning.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing database and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		if closeErr := a.db.Close(); closeErr != nil {
			logger.Log.Errorln("failed to close database", "error", closeErr)
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}
