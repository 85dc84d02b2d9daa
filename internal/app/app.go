package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/senoxone/qbshop/internal/config"
	"github.com/senoxone/qbshop/internal/fetcher"
	"github.com/senoxone/qbshop/internal/logging"
	"github.com/senoxone/qbshop/internal/markup"
	"github.com/senoxone/qbshop/internal/refresh"
	"github.com/senoxone/qbshop/internal/scheduler"
	"github.com/senoxone/qbshop/internal/storage"
	"github.com/senoxone/qbshop/internal/watch"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logging.Component(logger, "app")}
}

func (a *App) newFetcher() fetcher.Fetcher {
	return fetcher.New(fetcher.Options{
		Timeout:   a.Config.Fetch.Timeout,
		Retries:   a.Config.Fetch.Retries,
		UserAgent: a.Config.Fetch.UserAgent,
	}, a.Logger)
}

func (a *App) loadMarkup() (*markup.Config, error) {
	mk, err := markup.Load(a.Config.Markup.Path)
	if err != nil {
		return nil, fmt.Errorf("load markup rules: %w", err)
	}
	return mk, nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, errors.New("database.dsn must be configured")
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newOrchestrator(store *storage.Store, mk *markup.Config) *refresh.Orchestrator {
	evaluator := watch.NewEvaluator(store, store, a.Logger)
	return refresh.NewOrchestrator(a.newFetcher(), store, mk, evaluator, refresh.Options{
		BaseURL:     a.Config.Catalog.BaseURL,
		CatalogURL:  a.Config.Catalog.CatalogURL,
		TitlePrefix: a.Config.Catalog.TitlePrefix,
		PageDelay:   a.Config.Refresh.PageDelay,
		DetailDelay: a.Config.Refresh.DetailDelay,
	}, a.Logger)
}

// Run executes the long-running refresh service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	mk, err := a.loadMarkup()
	if err != nil {
		return err
	}

	orch := a.newOrchestrator(store, mk)

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Refresh.Interval,
		StartupDelay: a.Config.Refresh.StartupDelay,
	}, a.Logger)

	a.Logger.Info().Msg("starting refresh service")
	err = sched.Run(ctx, func(ctx context.Context) error {
		_, err := orch.Run(ctx)
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("refresh service stopped")
	return nil
}

// RefreshOnce runs a single refresh cycle and returns how many offers were
// persisted.
func (a *App) RefreshOnce(ctx context.Context) (int, error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return 0, err
	}
	defer closeStore()

	mk, err := a.loadMarkup()
	if err != nil {
		return 0, err
	}

	return a.newOrchestrator(store, mk).Run(ctx)
}

// QueryOptions configure the query command.
type QueryOptions struct {
	Query string
	Limit int
	// AllStatuses includes preorder and out-of-stock offers in the results.
	AllStatuses bool
}

// ExportOptions hold parameters for exporting price history.
type ExportOptions struct {
	Title     string
	Window    time.Duration
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// WatchOptions configure a new watch rule.
type WatchOptions struct {
	Query  string
	Mode   string
	Amount string
}
