package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/batepapo-server/internal/chat"
	"github.com/vovakirdan/batepapo-server/internal/config"
	"github.com/vovakirdan/batepapo-server/internal/presence"
	"github.com/vovakirdan/batepapo-server/internal/store"
	"github.com/vovakirdan/batepapo-server/internal/store/mongodb"
	"github.com/vovakirdan/batepapo-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/batepapo-server/internal/transport/http"
)

const storeConnectTimeout = 10 * time.Second

// App wires together store, presence reaper and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	reaper          *presence.Reaper
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
// The store connection is owned by the App and released when Run returns.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	svc := chat.NewService(st, nil, logger)
	reaper := presence.NewReaper(st, st, presence.Config{
		Interval:   cfg.Presence.SweepInterval,
		StaleAfter: cfg.Presence.StaleAfter,
	}, logger)
	server := transporthttp.NewServer(svc, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		reaper:          reaper,
		store:           st,
		log:             logger,
	}, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger *zerolog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		st, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("db_path", cfg.SQLitePath).Msg("sqlite store opened")
		return st, nil
	case config.DriverMongo:
		connectCtx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
		defer cancel()
		st, err := mongodb.New(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("database", cfg.MongoDatabase).Msg("mongo store connected")
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Run starts the HTTP server and the reaper and blocks until context
// cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	reaperCtx, stopReaper := context.WithCancel(ctx)
	reaperDone := make(chan struct{})
	go func() {
		defer close(reaperDone)
		a.reaper.Run(reaperCtx)
	}()

	// The reaper must be stopped before the store is closed.
	defer func() {
		stopReaper()
		<-reaperDone
		a.cleanup()
	}()

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}

		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
