// Package pipeline runs the Fetch, Paginate, Normalize, Reconcile and Export
// chain as a single-flight job.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/yungbote/tenpadel-backend/internal/data/repos"
	"github.com/yungbote/tenpadel-backend/internal/domain/ingest"
	"github.com/yungbote/tenpadel-backend/internal/domain/tournaments"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/failure"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/fetch"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/mirror"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/normalize"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/paginate"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/reconcile"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/runlock"
	"github.com/yungbote/tenpadel-backend/internal/observability"
	"github.com/yungbote/tenpadel-backend/internal/platform/dbctx"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

type Config struct {
	Source     tournaments.Source
	MaxResults int
	MaxPages   int
	WindowDays int
	Location   *time.Location
	Defaults   Params
}

// Notifier receives the summary of every recorded run.
type Notifier interface {
	Publish(ctx context.Context, event any) error
}

type Deps struct {
	Fetcher    *fetch.Client
	Lock       runlock.Lock
	Reconciler *reconcile.Reconciler
	Exporter   *mirror.Exporter
	Runs       repos.IngestRunRepo
	Notifier   Notifier
}

type Service struct {
	cfg        Config
	fetcher    *fetch.Client
	lock       runlock.Lock
	reconciler *reconcile.Reconciler
	exporter   *mirror.Exporter
	runs       repos.IngestRunRepo
	notifier   Notifier
	log        *logger.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

func NewService(cfg Config, deps Deps, log *logger.Logger) (*Service, error) {
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("fetch client required")
	}
	if cfg.Source == "" {
		cfg.Source = tournaments.SourceTenUp
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 500
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = paginate.DefaultMaxPages
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 60
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if deps.Lock == nil {
		deps.Lock = runlock.NewLocal()
	}
	return &Service{
		cfg:        cfg,
		fetcher:    deps.Fetcher,
		lock:       deps.Lock,
		reconciler: deps.Reconciler,
		exporter:   deps.Exporter,
		runs:       deps.Runs,
		notifier:   deps.Notifier,
		log:        log.With("service", "IngestPipeline"),
		tracer:     otel.Tracer("tenpadel/ingestion"),
		now:        time.Now,
	}, nil
}

// collected is the output of the fetch and normalize stages.
type collected struct {
	candidates []normalize.Candidate
	fetchErr   error
}

// Run executes one full run. A run requested while another is in flight is
// rejected with runlock.ErrBusy. A fetch failure after items were collected
// yields a partial run; store failures and cancellation leave the store
// untouched.
func (s *Service) Run(ctx context.Context, p Params, trigger string) (RunSummary, error) {
	if s.reconciler == nil || s.exporter == nil {
		return RunSummary{}, fmt.Errorf("pipeline has no store configured")
	}
	sum := RunSummary{Trigger: trigger, StartedAt: s.now().UTC()}
	filters, limit, err := s.resolve(p)
	if err != nil {
		return sum, err
	}
	sum.Filters, sum.Limit = filters, limit

	release, err := s.lock.TryAcquire(ctx)
	if err != nil {
		sum.Status = ingest.StatusFailed
		if IsBusy(err) {
			sum.Status = ingest.StatusRejected
		}
		sum.fail(err)
		s.finish(ctx, &sum)
		s.log.Warn("ingest run not started", "trigger", trigger, "error", err)
		return sum, err
	}
	defer release()

	ctx, span := s.tracer.Start(ctx, "ingest.run", trace.WithAttributes(attribute.String("ingest.trigger", trigger)))
	defer span.End()

	runErr := s.run(ctx, &sum)
	s.finish(ctx, &sum)
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, string(failure.KindOf(runErr)))
	}
	span.SetAttributes(
		attribute.String("ingest.status", sum.Status),
		attribute.Int("ingest.inserted", sum.Inserted),
		attribute.Int("ingest.updated", sum.Updated),
		attribute.Int("ingest.skipped", sum.Skipped),
	)
	return sum, runErr
}

func (s *Service) run(ctx context.Context, sum *RunSummary) error {
	got := s.collect(ctx, sum)
	if err := discardIfCanceled(ctx, got.fetchErr); err != nil {
		sum.Status = ingest.StatusFailed
		sum.fail(err)
		s.log.Warn("ingest run canceled, results discarded", "collected", sum.Fetched)
		return err
	}
	if got.fetchErr != nil && sum.Fetched == 0 {
		sum.Status = ingest.StatusFailed
		sum.fail(got.fetchErr)
		return got.fetchErr
	}
	if got.fetchErr != nil {
		sum.Partial = true
		sum.fail(got.fetchErr)
	}

	rows := make([]tournaments.Tournament, 0, len(got.candidates))
	for _, c := range got.candidates {
		rows = append(rows, c.Tournament)
	}

	rctx, rspan := s.tracer.Start(ctx, "ingest.reconcile")
	rec, err := s.reconciler.Apply(rctx, rows)
	rspan.End()
	sum.Attempted = rec.Attempted
	if err != nil {
		sum.Status = ingest.StatusFailed
		sum.FirstError = failure.Summarize(err)
		s.log.Error("reconciliation failed", "kind", failure.KindOf(err), "error", err)
		return err
	}
	sum.Inserted, sum.Updated, sum.Skipped = rec.Inserted, rec.Updated, rec.Skipped

	ectx, espan := s.tracer.Start(ctx, "ingest.export")
	res, err := s.exporter.Export(context.WithoutCancel(ectx))
	espan.End()
	if err != nil {
		sum.Status = ingest.StatusFailed
		err = failure.Wrap(failure.KindInternal, err)
		sum.fail(err)
		s.log.Error("mirror export failed", "error", err)
		return err
	}
	sum.Mirror = &res

	sum.Status = ingest.StatusSucceeded
	if sum.Partial {
		sum.Status = ingest.StatusPartial
	}
	return nil
}

// DryRun performs Fetch, Paginate and Normalize and returns the candidate set
// without touching the store.
func (s *Service) DryRun(ctx context.Context, p Params) (RunSummary, error) {
	sum := RunSummary{Trigger: ingest.TriggerCLI, DryRun: true, StartedAt: s.now().UTC()}
	filters, limit, err := s.resolve(p)
	if err != nil {
		return sum, err
	}
	sum.Filters, sum.Limit = filters, limit

	got := s.collect(ctx, &sum)
	if err := discardIfCanceled(ctx, got.fetchErr); err != nil {
		sum.Status = ingest.StatusFailed
		sum.fail(err)
		return sum, err
	}
	if got.fetchErr != nil && sum.Fetched == 0 {
		sum.Status = ingest.StatusFailed
		sum.fail(got.fetchErr)
		s.stamp(&sum)
		return sum, got.fetchErr
	}
	sum.Status = ingest.StatusSucceeded
	if got.fetchErr != nil {
		sum.Partial = true
		sum.Status = ingest.StatusPartial
		sum.fail(got.fetchErr)
	}
	sum.Attempted = len(got.candidates)
	sum.Candidates = make([]tournaments.Tournament, 0, len(got.candidates))
	for _, c := range got.candidates {
		sum.Candidates = append(sum.Candidates, c.Tournament)
	}
	s.stamp(&sum)
	return sum, nil
}

func (s *Service) collect(ctx context.Context, sum *RunSummary) collected {
	fctx, span := s.tracer.Start(ctx, "ingest.fetch")
	pager := paginate.New(s.fetcher.NewSession(), s.log)
	res, fetchErr := pager.Collect(fctx, sum.Filters, paginate.Options{Limit: sum.Limit, MaxPages: s.cfg.MaxPages})
	span.SetAttributes(attribute.Int("ingest.pages", res.Pages), attribute.Int("ingest.items", len(res.Items)))
	if fetchErr != nil {
		span.RecordError(fetchErr)
	}
	span.End()

	sum.Pages, sum.Stop, sum.Fetched = res.Pages, res.Stop, len(res.Items)

	cands, rejections := normalize.NormalizeAll(res.Items, normalize.Options{
		Source:        s.cfg.Source,
		DefaultRegion: sum.Filters.Region,
	})
	for _, rj := range rejections {
		s.log.Warn("record excluded", "reason", rj.Err.Kind, "field", rj.Err.Field, "raw_key", rj.RawKey, "raw", rj.Err.Raw)
		sum.Exclusions = append(sum.Exclusions, Exclusion{RawKey: rj.RawKey, Reason: rj.Err.Kind, Field: rj.Err.Field})
	}
	sum.Excluded = len(rejections)
	for _, c := range cands {
		if c.LowConfidenceGender {
			s.log.Debug("gender defaulted to mixed", "raw_key", c.RawKey, "identity_hash", c.Tournament.IdentityHash)
		}
	}
	return collected{candidates: cands, fetchErr: fetchErr}
}

func discardIfCanceled(ctx context.Context, fetchErr error) error {
	if failure.KindOf(fetchErr) == failure.KindCanceled {
		return fetchErr
	}
	if err := ctx.Err(); err != nil {
		return failure.Wrap(failure.KindCanceled, err)
	}
	return nil
}

func (s *Service) stamp(sum *RunSummary) {
	sum.FinishedAt = s.now().UTC()
	sum.DurationMS = sum.FinishedAt.Sub(sum.StartedAt).Milliseconds()
}

// finish records the ledger row and announces the run. Both are best effort
// and survive cancellation of the run context.
func (s *Service) finish(ctx context.Context, sum *RunSummary) {
	s.stamp(sum)
	ctx = context.WithoutCancel(ctx)

	if s.runs != nil {
		row := &ingest.IngestRun{
			Trigger:    sum.Trigger,
			Status:     sum.Status,
			Pages:      sum.Pages,
			Fetched:    sum.Fetched,
			Excluded:   sum.Excluded,
			Inserted:   sum.Inserted,
			Updated:    sum.Updated,
			Skipped:    sum.Skipped,
			DurationMS: sum.DurationMS,
			StartedAt:  sum.StartedAt,
		}
		finished := sum.FinishedAt
		row.FinishedAt = &finished
		if raw, err := json.Marshal(sum.Filters); err == nil {
			row.Filters = datatypes.JSON(raw)
		}
		if sum.FirstError != nil {
			row.ErrorKind = string(sum.FirstError.Kind)
			row.Error = sum.FirstError.Message
		}
		if created, err := s.runs.Create(dbctx.Context{Ctx: ctx}, row); err != nil {
			s.log.Warn("failed to record ingest run", "error", err)
		} else {
			sum.RunID = created.ID.String()
		}
	}

	s.log.Info("ingest run finished",
		"run_id", sum.RunID,
		"trigger", sum.Trigger,
		"status", sum.Status,
		"pages", sum.Pages,
		"fetched", sum.Fetched,
		"excluded", sum.Excluded,
		"inserted", sum.Inserted,
		"updated", sum.Updated,
		"skipped", sum.Skipped,
		"duration_ms", sum.DurationMS,
	)

	obs := observability.RunObservation{
		Trigger:  sum.Trigger,
		Status:   sum.Status,
		Duration: time.Duration(sum.DurationMS) * time.Millisecond,
		Pages:    sum.Pages,
		Fetched:  sum.Fetched,
		Excluded: sum.Excluded,
		Inserted: sum.Inserted,
		Updated:  sum.Updated,
		Skipped:  sum.Skipped,
		Finished: sum.FinishedAt,
	}
	if sum.FirstError != nil {
		obs.ErrorKind = string(sum.FirstError.Kind)
	}
	if sum.Mirror != nil {
		obs.Mirrored = sum.Mirror.Count
	}
	observability.Current().ObserveRun(obs)

	if s.notifier != nil {
		if err := s.notifier.Publish(ctx, sum); err != nil {
			s.log.Warn("failed to publish run event", "error", err)
		}
	}
}

// IsBusy reports whether err is a rejected concurrent run.
func IsBusy(err error) bool { return errors.Is(err, runlock.ErrBusy) }
