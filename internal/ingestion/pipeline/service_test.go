package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/tenpadel-backend/internal/data/repos"
	"github.com/yungbote/tenpadel-backend/internal/data/repos/testutil"
	"github.com/yungbote/tenpadel-backend/internal/domain/ingest"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/failure"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/fetch"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/mirror"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/reconcile"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/runlock"
	"github.com/yungbote/tenpadel-backend/internal/platform/dbctx"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

type card struct {
	id, title, date, level string
}

func (c card) html() string {
	date := fmt.Sprintf(`<time datetime="%s">%s</time>`, c.date, c.date)
	if !strings.HasPrefix(c.date, "20") {
		date = fmt.Sprintf(`<span class="date">%s</span>`, c.date)
	}
	return fmt.Sprintf(`<li class="tournament" data-tournament-id="%s">
  <a href="/tournoi/%s"><h3>%s</h3></a>
  <span class="location">Padel Club, Paris</span>
  %s
  <span class="badge">P250</span><span class="badge">DM</span><span class="badge">%s</span>
</li>`, c.id, c.id, c.title, date, c.level)
}

func listing(next string, cards ...card) string {
	var b strings.Builder
	b.WriteString("<html><body><main><ul>")
	for _, c := range cards {
		b.WriteString(c.html())
	}
	b.WriteString("</ul>")
	if next != "" {
		fmt.Fprintf(&b, `<nav><a rel="next" href="?page=%s">suivant</a></nav>`, next)
	}
	b.WriteString("</main></body></html>")
	return b.String()
}

// feed serves listing pages keyed by the page query parameter.
type feed struct {
	mu     sync.Mutex
	pages  map[string]string
	status map[string]int
	onHit  func(page string)
}

func (f *feed) set(page, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[page] = body
}

func (f *feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	page := r.URL.Query().Get("page")
	if page == "" {
		page = "1"
	}
	if f.onHit != nil {
		f.onHit(page)
	}
	f.mu.Lock()
	body, ok := f.pages[page]
	status := f.status[page]
	f.mu.Unlock()
	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	_, _ = w.Write([]byte(body))
}

type harness struct {
	svc        *Service
	db         *gorm.DB
	repo       repos.TournamentRepo
	runs       repos.IngestRunRepo
	mirrorPath string
	baseURL    string
	log        *logger.Logger
}

func newHarness(t *testing.T, f *feed) *harness {
	return newHarnessWithLock(t, f, runlock.NewLocal())
}

func newHarnessWithLock(t *testing.T, f *feed, lock runlock.Lock) *harness {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	log := testutil.Logger(t)
	gdb := testutil.SQLite(t)
	h := &harness{
		db:         gdb,
		repo:       repos.NewTournamentRepo(gdb, log),
		runs:       repos.NewIngestRunRepo(gdb, log),
		mirrorPath: filepath.Join(t.TempDir(), "tournaments.json"),
		baseURL:    srv.URL,
		log:        log,
	}
	h.svc = h.service(t, lock)
	return h
}

// service builds another Service over the same feed, store and mirror, the
// way a second process would.
func (h *harness) service(t *testing.T, lock runlock.Lock) *Service {
	t.Helper()
	client, err := fetch.NewClient(fetch.Config{
		BaseURL:    h.baseURL,
		SearchPath: "/recherche/tournois",
		Timeout:    5 * time.Second,
	}, h.log, fetch.WithSleeper(func(context.Context, time.Duration) error { return nil }))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	svc, err := NewService(Config{MaxResults: 100}, Deps{
		Fetcher:    client,
		Lock:       lock,
		Reconciler: reconcile.New(h.db, h.repo, h.log),
		Exporter:   mirror.NewExporter(h.repo, h.mirrorPath, nil, h.log),
		Runs:       h.runs,
	}, h.log)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc.now = func() time.Time { return time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func newFeed() *feed {
	return &feed{pages: map[string]string{}, status: map[string]int{}}
}

func (h *harness) assertMirrorConsistent(t *testing.T) {
	t.Helper()
	rep, err := mirror.Check(context.Background(), h.mirrorPath, h.repo)
	if err != nil {
		t.Fatalf("mirror check: %v", err)
	}
	if !rep.Consistent || int64(rep.MirrorCount) != rep.StoreCount {
		t.Fatalf("mirror inconsistent: %+v", rep)
	}
}

func counts(s RunSummary) [3]int { return [3]int{s.Inserted, s.Updated, s.Skipped} }

func TestRunIsIdempotentAndDetectsLevelChange(t *testing.T) {
	f := newFeed()
	items := []card{
		{"101", "Open A", "2025-01-12", "Régional"},
		{"102", "Open B", "2025-01-19", "Régional"},
		{"103", "Open C", "2025-01-26", "Régional"},
	}
	f.set("1", listing("", items...))
	h := newHarness(t, f)
	ctx := context.Background()

	first, err := h.svc.Run(ctx, Params{}, ingest.TriggerAdmin)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if counts(first) != [3]int{3, 0, 0} || first.Status != ingest.StatusSucceeded {
		t.Fatalf("first run: %+v", first)
	}
	h.assertMirrorConsistent(t)

	second, err := h.svc.Run(ctx, Params{}, ingest.TriggerAdmin)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if counts(second) != [3]int{0, 0, 3} {
		t.Fatalf("second run: %+v", second)
	}

	items[1].level = "National"
	f.set("1", listing("", items...))
	third, err := h.svc.Run(ctx, Params{}, ingest.TriggerSchedule)
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if counts(third) != [3]int{0, 1, 2} {
		t.Fatalf("third run: %+v", third)
	}
	h.assertMirrorConsistent(t)

	recorded, err := h.runs.ListRecent(dbctx.Context{Ctx: ctx}, 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recorded) != 3 || third.RunID == "" {
		t.Fatalf("expected 3 ledger rows and a run id, got %d / %q", len(recorded), third.RunID)
	}
}

func TestRunIsolatesInvalidDates(t *testing.T) {
	f := newFeed()
	f.set("1", listing("",
		card{"201", "Open A", "2025-02-01", "Régional"},
		card{"202", "Open B", "31 févr. 2025", "Régional"},
		card{"203", "Open C", "2025-02-15", "Régional"},
	))
	h := newHarness(t, f)

	sum, err := h.svc.Run(context.Background(), Params{}, ingest.TriggerAdmin)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Inserted != 2 || sum.Excluded != 1 || sum.Fetched != 3 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if len(sum.Exclusions) != 1 || sum.Exclusions[0].Reason != failure.KindInvalidDate {
		t.Fatalf("exclusions: %+v", sum.Exclusions)
	}
}

func TestRunKeepsItemsCollectedBeforeFetchFailure(t *testing.T) {
	f := newFeed()
	f.set("1", listing("2", card{"301", "Open A", "2025-02-01", "Régional"}, card{"302", "Open B", "2025-02-02", "Régional"}))
	f.status["2"] = http.StatusBadGateway
	h := newHarness(t, f)

	sum, err := h.svc.Run(context.Background(), Params{}, ingest.TriggerAdmin)
	if err != nil {
		t.Fatalf("partial run should not fail: %v", err)
	}
	if sum.Status != ingest.StatusPartial || !sum.Partial || sum.Inserted != 2 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.FirstError == nil || sum.FirstError.Kind != failure.KindNetwork {
		t.Fatalf("first error: %+v", sum.FirstError)
	}
	h.assertMirrorConsistent(t)
}

func TestRunFailsWhenFirstPageFails(t *testing.T) {
	f := newFeed()
	f.status["1"] = http.StatusTooManyRequests
	h := newHarness(t, f)

	sum, err := h.svc.Run(context.Background(), Params{}, ingest.TriggerAdmin)
	if failure.KindOf(err) != failure.KindRateLimited {
		t.Fatalf("got %v want rate_limited", err)
	}
	if sum.Status != ingest.StatusFailed {
		t.Fatalf("status: %q", sum.Status)
	}
	n, _ := h.repo.Count(dbctx.Context{Ctx: context.Background()})
	if n != 0 {
		t.Fatalf("store should be untouched, has %d rows", n)
	}
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	f := newFeed()
	f.set("1", listing("", card{"401", "Open A", "2025-02-01", "Régional"}))
	entered := make(chan struct{})
	gate := make(chan struct{})
	var once sync.Once
	f.onHit = func(string) {
		once.Do(func() {
			close(entered)
			<-gate
		})
	}
	h := newHarness(t, f)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := h.svc.Run(ctx, Params{}, ingest.TriggerSchedule)
		done <- err
	}()
	<-entered

	sum, err := h.svc.Run(ctx, Params{}, ingest.TriggerAdmin)
	if !IsBusy(err) || failure.KindOf(err) != failure.KindBusy {
		t.Fatalf("got %v want concurrent_run_rejected", err)
	}
	if sum.Status != ingest.StatusRejected {
		t.Fatalf("status: %q", sum.Status)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
	n, _ := h.repo.Count(dbctx.Context{Ctx: ctx})
	if n != 1 {
		t.Fatalf("store rows: %d", n)
	}
}

func TestRunRejectsRunFromAnotherProcess(t *testing.T) {
	f := newFeed()
	f.set("1", listing("", card{"451", "Open A", "2025-02-01", "Régional"}))
	entered := make(chan struct{})
	gate := make(chan struct{})
	var once sync.Once
	f.onHit = func(string) {
		once.Do(func() {
			close(entered)
			<-gate
		})
	}
	lockPath := filepath.Join(t.TempDir(), "ingest.lock")
	h := newHarnessWithLock(t, f, runlock.NewComposite(runlock.NewFileLock(lockPath, time.Minute, nil)))
	// Separate in-process lock, shared lock file: a CLI next to the server.
	other := h.service(t, runlock.NewComposite(runlock.NewFileLock(lockPath, time.Minute, nil)))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := h.svc.Run(ctx, Params{}, ingest.TriggerSchedule)
		done <- err
	}()
	<-entered

	sum, err := other.Run(ctx, Params{}, ingest.TriggerCLI)
	if !IsBusy(err) || failure.KindOf(err) != failure.KindBusy {
		t.Fatalf("got %v want concurrent_run_rejected", err)
	}
	if sum.Status != ingest.StatusRejected {
		t.Fatalf("status: %q", sum.Status)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
	after, err := other.Run(ctx, Params{}, ingest.TriggerCLI)
	if err != nil {
		t.Fatalf("run after release: %v", err)
	}
	if counts(after) != [3]int{0, 0, 1} {
		t.Fatalf("run after release: %+v", after)
	}
	if _, err := os.Stat(lockPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("lock file left behind: %v", err)
	}
}

func TestRunStoreConflictKeepsPreviousMirror(t *testing.T) {
	f := newFeed()
	f.set("1", listing("", card{"601", "Open A", "2025-02-01", "Régional"}))
	h := newHarness(t, f)
	ctx := context.Background()

	if _, err := h.svc.Run(ctx, Params{}, ingest.TriggerAdmin); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before, err := os.ReadFile(h.mirrorPath)
	if err != nil {
		t.Fatalf("read mirror: %v", err)
	}

	// Occupies 602's natural key under an identity no candidate will carry.
	testutil.SeedTournament(t, ctx, h.db, testutil.NewTournament("drift", "602", "2025-02-02"))
	f.set("1", listing("", card{"601", "Open A", "2025-02-01", "Régional"}, card{"602", "Open B", "2025-02-02", "Régional"}))

	sum, err := h.svc.Run(ctx, Params{}, ingest.TriggerAdmin)
	if failure.KindOf(err) != failure.KindStoreConflict {
		t.Fatalf("got %v want store_conflict", err)
	}
	if sum.Status != ingest.StatusFailed || sum.Mirror != nil {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.FirstError == nil || strings.Contains(sum.FirstError.Message, "UNIQUE") {
		t.Fatalf("first error: %+v", sum.FirstError)
	}
	after, err := os.ReadFile(h.mirrorPath)
	if err != nil {
		t.Fatalf("read mirror: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("mirror rewritten after failed reconcile")
	}
	n, _ := h.repo.Count(dbctx.Context{Ctx: ctx})
	if n != 2 {
		t.Fatalf("store rows: %d want 2", n)
	}
}

func TestRunCanceledBetweenPagesDiscardsResults(t *testing.T) {
	f := newFeed()
	f.set("1", listing("2", card{"501", "Open A", "2025-02-01", "Régional"}))
	f.set("2", listing("", card{"502", "Open B", "2025-02-02", "Régional"}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.onHit = func(page string) {
		if page == "2" {
			cancel()
		}
	}
	h := newHarness(t, f)

	sum, err := h.svc.Run(ctx, Params{}, ingest.TriggerAdmin)
	if failure.KindOf(err) != failure.KindCanceled {
		t.Fatalf("got %v want canceled", err)
	}
	if sum.Status != ingest.StatusFailed || sum.Inserted != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	n, _ := h.repo.Count(dbctx.Context{Ctx: context.Background()})
	if n != 0 {
		t.Fatalf("canceled run wrote %d rows", n)
	}
	recorded, _ := h.runs.ListRecent(dbctx.Context{Ctx: context.Background()}, 5)
	if len(recorded) != 1 || recorded[0].ErrorKind != string(failure.KindCanceled) {
		t.Fatalf("ledger: %+v", recorded)
	}
}

func TestDryRunDoesNotTouchStore(t *testing.T) {
	f := newFeed()
	f.set("1", listing("", card{"601", "Open A", "2025-02-01", "Régional"}, card{"602", "Open B", "2025-02-02", "Régional"}))
	h := newHarness(t, f)

	sum, err := h.svc.DryRun(context.Background(), Params{Limit: 1})
	if err != nil {
		t.Fatalf("DryRun: %v", err)
	}
	if !sum.DryRun || len(sum.Candidates) != 1 || sum.Candidates[0].ExternalID != "601" {
		t.Fatalf("unexpected dry run: %+v", sum)
	}
	n, _ := h.repo.Count(dbctx.Context{Ctx: context.Background()})
	if n != 0 {
		t.Fatalf("dry run wrote %d rows", n)
	}
	recorded, _ := h.runs.ListRecent(dbctx.Context{Ctx: context.Background()}, 5)
	if len(recorded) != 0 {
		t.Fatalf("dry run recorded %d ledger rows", len(recorded))
	}
}

func TestRunRejectsInvalidParams(t *testing.T) {
	h := newHarness(t, newFeed())
	_, err := h.svc.Run(context.Background(), Params{Genders: []string{"robots"}}, ingest.TriggerAdmin)
	var perr *ParamsError
	if !errors.As(err, &perr) {
		t.Fatalf("got %v want ParamsError", err)
	}
}
