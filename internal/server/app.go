// Package server initializes and runs the main application server.
// It wires the database, services, mailer and avatar storage together,
// starts the HTTP server, and handles graceful shutdown.
package server

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

	"github.com/adarshn/notebox/internal/logging"
	"github.com/adarshn/notebox/internal/server/avatars"
	"github.com/adarshn/notebox/internal/server/config"
	"github.com/adarshn/notebox/internal/server/httpapi"
	"github.com/adarshn/notebox/internal/server/mail"
	"github.com/adarshn/notebox/internal/server/repositories/repomanager"
	"github.com/adarshn/notebox/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	repos  repomanager.RepositoryManager
	api    *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	repos, err := repomanager.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	mailer := mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername,
		cfg.SMTPPassword, cfg.SMTPFrom, cfg.ClientOrigin)
	avatarStore := avatars.NewS3Store(cfg.S3RootUser, cfg.S3RootPassword,
		cfg.S3Bucket, cfg.S3Region, cfg.S3BaseEndpoint)

	userService := services.NewUserService(repos.Conn(), repos, mailer, avatarStore, cfg)
	noteService := services.NewNoteService(repos.Conn(), repos)

	api := httpapi.NewServer(logger, userService, noteService, cfg)

	return &App{config: cfg, logger: logger, repos: repos, api: api}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "addr", app.config.HTTPAddr)

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:    app.config.HTTPAddr,
		Handler: app.api.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, err.Error())
		}
	case <-ctx.Done():
		app.logger.Info(ctx, "Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, err.Error())
		}
	}

	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
