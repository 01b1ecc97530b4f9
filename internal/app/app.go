package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/tenpadel-backend/internal/data/db"
	"github.com/yungbote/tenpadel-backend/internal/http"
	"github.com/yungbote/tenpadel-backend/internal/observability"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *http.Server
	Cfg      Config
	Repos    Repos
	Services Services
	Clients  Clients
	Metrics  *observability.Metrics

	store        *db.StoreService
	otelShutdown func(context.Context) error
	base         context.Context
	cancel       context.CancelFunc
}

func New() (*App, error) {
	if err := LoadEnv(); err != nil {
		return nil, err
	}
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg)
}

func NewWithConfig(cfg Config) (*App, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...", "db_driver", cfg.DB.Driver, "schedule", cfg.Schedule, "mirror", cfg.MirrorPath)

	store, err := db.NewStoreService(cfg.DB, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init store: %w", err)
	}
	if err := store.AutoMigrateAll(); err != nil {
		_ = store.Close()
		log.Sync()
		return nil, fmt.Errorf("store automigrate: %w", err)
	}
	theDB := store.DB()

	// The base context outlives every request and is canceled by Close.
	base, cancel := context.WithCancel(context.Background())

	otelShutdown := observability.InitOTel(base, log, observability.OtelConfigFromEnv(cfg.ServiceName))
	metrics := observability.Init(log)

	clientset, err := wireClients(base, cfg, log)
	if err != nil {
		cancel()
		_ = store.Close()
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(theDB, log, cfg, reposet, clientset)
	if err != nil {
		cancel()
		clientset.Close()
		_ = store.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(base, log, cfg, reposet, serviceset)
	server := wireServer(log, cfg, handlerset, metrics)

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Clients:      clientset,
		Metrics:      metrics,
		store:        store,
		otelShutdown: otelShutdown,
		base:         base,
		cancel:       cancel,
	}, nil
}

// Run serves HTTP and drives the schedule until ctx is done or either fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Log.Info("Server listening", "addr", a.Cfg.HTTPAddr)
		return a.Server.Run(gctx, a.Cfg.HTTPAddr)
	})

	if sched := a.Services.Scheduler; sched != nil {
		g.Go(func() error {
			sched.Start(a.base)
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			// In-flight runs see cancellation through the base context.
			a.cancel()
			sched.Stop(stopCtx)
			return nil
		})
	} else {
		a.Log.Info("ingest schedule disabled")
	}

	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.Log.Warn("store close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
