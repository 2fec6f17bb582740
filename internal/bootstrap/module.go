package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/mosaicpm/mosaic/internal/bootstrap/config"
	"github.com/mosaicpm/mosaic/internal/bootstrap/database"
	"github.com/mosaicpm/mosaic/internal/bootstrap/logging"
	"github.com/mosaicpm/mosaic/internal/errs"
	cacheinfra "github.com/mosaicpm/mosaic/internal/infrastructure/cache"
	githubinfra "github.com/mosaicpm/mosaic/internal/infrastructure/github"
	"github.com/mosaicpm/mosaic/internal/infrastructure/llm"
	"github.com/mosaicpm/mosaic/internal/infrastructure/notify"
	sqliterepo "github.com/mosaicpm/mosaic/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "github.com/mosaicpm/mosaic/internal/infrastructure/persistence/sqlite/uow"
	"github.com/mosaicpm/mosaic/internal/ports"
	"github.com/mosaicpm/mosaic/internal/server"
	"github.com/mosaicpm/mosaic/internal/usecase/analysis"
	"github.com/mosaicpm/mosaic/internal/usecase/audit"
	"github.com/mosaicpm/mosaic/internal/usecase/tickets"
	"github.com/mosaicpm/mosaic/internal/usecase/webhook"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewTrackerRepository,
			fx.As(new(ports.TrackerRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewSQLiteCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(provideDiffFetcher),
	fx.Provide(provideProfileStore),
	fx.Provide(providePool),
	fx.Provide(provideAnalyzer),
	fx.Provide(notify.NewWSHub),
	fx.Provide(provideNotifier),
	fx.Provide(audit.NewRecorder),
	fx.Provide(func(store *analysis.ProfileStore) webhook.ThresholdSource { return store }),
	fx.Provide(webhook.NewService),
	fx.Provide(analysis.NewService),
	fx.Provide(tickets.NewService),
	fx.Provide(provideServer),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideDiffFetcher(ctx context.Context, cfg config.Config) (ports.DiffFetcher, error) {
	return githubinfra.NewDiffFetcher(ctx, cfg.GitHub)
}

func provideAnalyzer(cfg config.Config, store *analysis.ProfileStore) (ports.Analyzer, error) {
	return llm.NewOpenAIAnalyzer(cfg.Analysis, store)
}

// provideProfileStore loads the analysis profile once at startup; a missing
// or broken file leaves the built-in defaults active. The file watcher starts
// with the server lifecycle.
func provideProfileStore(ctx context.Context, cfg config.Config) *analysis.ProfileStore {
	store := analysis.NewProfileStore()
	if err := store.LoadFrom(cfg.Analysis.ProfilePath); err != nil {
		logging.Warn(ctx, "analysis profile unavailable, using defaults",
			slog.String("path", cfg.Analysis.ProfilePath),
			slog.Any("err", errs.Loggable(err)),
		)
	}
	return store
}

func providePool(cfg config.Config) *analysis.Pool {
	return analysis.NewPool(cfg.Analysis.Workers)
}

func provideNotifier(lc fx.Lifecycle, ctx context.Context, cfg config.Config, hub *notify.WSHub) (ports.Notifier, error) {
	var sinks []ports.Notifier
	if cfg.Notify.WebSocket {
		sinks = append(sinks, hub)
	}
	if cfg.Notify.NATSURL != "" {
		publisher, err := notify.NewNATSPublisher(cfg.Notify.NATSURL)
		if err != nil {
			return nil, errs.Wrap(err, "connect nats")
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				publisher.Close()
				return nil
			},
		})
		sinks = append(sinks, publisher)
	}
	if len(sinks) == 0 {
		logging.Info(ctx, "no notification sinks enabled")
	}
	return notify.NewMulti(sinks...), nil
}

func provideServer(
	lc fx.Lifecycle,
	ctx context.Context,
	cfg config.Config,
	webhookSvc *webhook.Service,
	analysisSvc *analysis.Service,
	ticketSvc *tickets.Service,
	repo ports.TrackerRepository,
	store *analysis.ProfileStore,
	hub *notify.WSHub,
) *server.Server {
	srv := server.New(cfg.HTTP, webhookSvc, analysisSvc, ticketSvc, repo, hub)

	watchCtx, cancelWatch := context.WithCancel(ctx)
	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			if err := store.Watch(watchCtx, cfg.Analysis.ProfilePath); err != nil {
				logging.Warn(startCtx, "profile watcher unavailable",
					slog.Any("err", errs.Loggable(err)))
			}
			return srv.Start(startCtx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancelWatch()
			err := srv.Shutdown(stopCtx)
			analysisSvc.Wait()
			return err
		},
	})
	return srv
}
