// Package cli implements the covid-counter command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sipico/covid-counter-client/internal/api"
	"github.com/sipico/covid-counter-client/internal/auth"
	"github.com/sipico/covid-counter-client/internal/config"
	"github.com/sipico/covid-counter-client/internal/dataset"
	"github.com/sipico/covid-counter-client/internal/listing"
	"github.com/sipico/covid-counter-client/internal/logging"
	"github.com/sipico/covid-counter-client/internal/metrics"
	"github.com/sipico/covid-counter-client/internal/session"
	"github.com/sipico/covid-counter-client/internal/storage"
)

// App holds the long-lived collaborators shared by every command.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Storage  storage.Storage
	Session  *session.Store
	Client   *api.Client
	Auth     *auth.Machine

	closers []func() error
}

// NewApp wires storage, session, API client and the auth machine from cfg.
// The caller owns the returned App and must Close it.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	opts, err := cfg.StorageOptions()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}

	sess, err := session.Open(ctx, store)
	if err != nil {
		//nolint:errcheck
		store.Close()
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	reg := prometheus.NewRegistry()
	if err := metrics.Init(reg); err != nil {
		//nolint:errcheck
		store.Close()
		return nil, err
	}

	client := api.NewClient(
		api.WithBaseURL(cfg.APIURL),
		api.WithHTTPClient(api.NewHTTPClient(cfg.RequestTimeout, logger)),
		api.WithTokenSource(sess),
	)

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Storage:  store,
		Session:  sess,
		Client:   client,
		Auth:     auth.New(sess, client, auth.WithLogger(logger)),
	}
	a.closers = append(a.closers, store.Close)
	return a, nil
}

// NewController builds a list controller for ds using the app's client and
// configured debounce window.
func (a *App) NewController(ds dataset.Dataset, opts ...listing.Option) *listing.Controller {
	opts = append([]listing.Option{
		listing.WithLogger(a.Logger),
		listing.WithWindow(a.Config.DebounceWindow),
	}, opts...)
	return listing.New(ds, a.Client, opts...)
}

// OnClose registers f to run when the App is closed.
func (a *App) OnClose(f func() error) {
	a.closers = append(a.closers, f)
}

// Close releases everything the App opened, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenLogger builds the logger described by cfg. Output goes to LOG_FILE
// when set, otherwise to fallback. The returned closer is never nil.
func OpenLogger(cfg *config.Config, fallback io.Writer) (*slog.Logger, func() error, error) {
	if cfg.LogFile == "" {
		return logging.New(cfg.LogLevel, fallback), func() error { return nil }, nil
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return logging.New(cfg.LogLevel, f), f.Close, nil
}
