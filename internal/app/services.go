package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/tenpadel-backend/internal/ingestion/fetch"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/mirror"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/pipeline"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/reconcile"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/runlock"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/schedule"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

type Services struct {
	Fetch     *fetch.Client
	Exporter  *mirror.Exporter
	Pipeline  *pipeline.Service
	Scheduler *schedule.Scheduler
}

// NewFetchClient builds the Fetch Layer with the snapshot sink configured.
func NewFetchClient(cfg Config, log *logger.Logger) (*fetch.Client, error) {
	var opts []fetch.Option
	if cfg.SnapshotDir != "" {
		opts = append(opts, fetch.WithSnapshotSink(fetch.DirSink{Dir: cfg.SnapshotDir}))
	}
	return fetch.NewClient(cfg.Fetch, log, opts...)
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	fetcher, err := NewFetchClient(cfg, log)
	if err != nil {
		return Services{}, err
	}

	var publisher mirror.Publisher
	if clients.MirrorBucket != nil {
		publisher = clients.MirrorBucket
	}
	exporter := mirror.NewExporter(reposet.Tournaments, cfg.MirrorPath, publisher, log)

	var lock runlock.Lock
	switch {
	case clients.RunLock != nil:
		lock = runlock.NewComposite(clients.RunLock)
	case cfg.RunLockFile != "":
		lock = runlock.NewComposite(runlock.NewFileLock(cfg.RunLockFile, cfg.RunLockTTL, log))
	default:
		lock = runlock.NewLocal()
	}
	deps := pipeline.Deps{
		Fetcher:    fetcher,
		Lock:       lock,
		Reconciler: reconcile.New(db, reposet.Tournaments, log),
		Exporter:   exporter,
		Runs:       reposet.Runs,
	}
	if clients.RunEvents != nil {
		deps.Notifier = clients.RunEvents
	}
	svc, err := pipeline.NewService(cfg.PipelineConfig(), deps, log)
	if err != nil {
		return Services{}, err
	}

	var sched *schedule.Scheduler
	if cfg.Schedule != "" {
		sched, err = schedule.New(schedule.Config{
			Spec:     cfg.Schedule,
			Location: cfg.Location,
			Timeout:  cfg.RunTimeout,
		}, svc, log)
		if err != nil {
			return Services{}, err
		}
	}

	return Services{Fetch: fetcher, Exporter: exporter, Pipeline: svc, Scheduler: sched}, nil
}
