package applib

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/VacantAardvark/joseki/applib/auth"
	"github.com/VacantAardvark/joseki/applib/config"
	"github.com/VacantAardvark/joseki/applib/database"
	"github.com/VacantAardvark/joseki/broadcast"
	"github.com/VacantAardvark/joseki/server"
)

const shutdownTimeout = 5 * time.Second

type Application struct {
	serverVersion string
	config        config.Config
	db            *database.Database
	issuer        *auth.Issuer
	broadcaster   broadcast.Broadcaster
}

func NewApplication(serverVersion string, cfg config.Config, db *database.Database, issuer *auth.Issuer, broadcaster broadcast.Broadcaster) *Application {
	return &Application{
		serverVersion: serverVersion,
		config:        cfg,
		db:            db,
		issuer:        issuer,
		broadcaster:   broadcaster,
	}
}

// Handler builds the HTTP API for the application.
func (app *Application) Handler() (http.Handler, error) {
	pollTimeout, err := app.config.PollTimeoutDuration()
	if err != nil {
		return nil, err
	}
	srv := server.New(app.db, app.issuer, app.broadcaster, server.Options{
		PollTimeout: pollTimeout,
		CORSOrigins: app.config.CORSOrigins,
	})
	return srv.Router(), nil
}

// Serve runs the HTTP server until ctx is done, then shuts it down
// gracefully. Requests see ctx as their base context so long polls end
// promptly on shutdown.
func (app *Application) Serve(ctx context.Context) error {
	handler, err := app.Handler()
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:        app.config.Addr,
		Handler:     handler,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":    app.config.Addr,
			"version": app.serverVersion,
		}).Info("Starting server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func (app *Application) Close() error {
	return errors.Join(app.broadcaster.Close(), app.db.Close())
}
