package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tenpadel-backend/internal/data/repos"
	"github.com/yungbote/tenpadel-backend/internal/data/repos/testutil"
	domain "github.com/yungbote/tenpadel-backend/internal/domain"
	"github.com/yungbote/tenpadel-backend/internal/domain/ingest"
	httpH "github.com/yungbote/tenpadel-backend/internal/http/handlers"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/failure"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/mirror"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/pipeline"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/runlock"
	"github.com/yungbote/tenpadel-backend/internal/observability"
	"github.com/yungbote/tenpadel-backend/internal/platform/dbctx"
)

const adminToken = "test-admin-token"

type fakeTrigger struct {
	sum     pipeline.RunSummary
	err     error
	gotP    pipeline.Params
	trigger string
	dry     bool
}

func (f *fakeTrigger) Run(_ context.Context, p pipeline.Params, trigger string) (pipeline.RunSummary, error) {
	f.gotP, f.trigger = p, trigger
	return f.sum, f.err
}

func (f *fakeTrigger) DryRun(_ context.Context, p pipeline.Params) (pipeline.RunSummary, error) {
	f.gotP, f.dry = p, true
	return f.sum, f.err
}

type fixture struct {
	engine     *gin.Engine
	trigger    *fakeTrigger
	repo       repos.TournamentRepo
	runs       repos.IngestRunRepo
	mirrorPath string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := testutil.Logger(t)
	gdb := testutil.SQLite(t)
	repo := repos.NewTournamentRepo(gdb, log)
	runs := repos.NewIngestRunRepo(gdb, log)
	path := filepath.Join(t.TempDir(), "tournaments.json")
	trig := &fakeTrigger{}

	engine := NewRouter(RouterConfig{
		Log:               log,
		AdminToken:        adminToken,
		Metrics:           observability.NewMetrics(),
		HealthHandler:     httpH.NewHealthHandler(log, repo, path),
		TournamentHandler: httpH.NewTournamentHandler(path),
		IngestHandler:     httpH.NewIngestHandler(context.Background(), log, trig, runs),
	})
	return &fixture{engine: engine, trigger: trig, repo: repo, runs: runs, mirrorPath: path}
}

func (f *fixture) do(t *testing.T, method, target, body string, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("X-Admin-Token", token)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
	Summary *pipeline.RunSummary `json:"summary"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestIngestRequiresAdminToken(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/admin/ingest", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: %d", rec.Code)
	}
	if f.trigger.trigger != "" {
		t.Fatalf("trigger should not run without a token")
	}
}

func TestIngestReturnsSummary(t *testing.T) {
	f := newFixture(t)
	f.trigger.sum = pipeline.RunSummary{Status: ingest.StatusSucceeded, Inserted: 3}

	rec := f.do(t, http.MethodPost, "/admin/ingest", `{"categories":["P250"],"region":"Bretagne","limit":10}`, adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", rec.Code, rec.Body.String())
	}
	var sum pipeline.RunSummary
	decode(t, rec, &sum)
	if sum.Inserted != 3 || sum.Status != ingest.StatusSucceeded {
		t.Fatalf("summary: %+v", sum)
	}
	if f.trigger.trigger != ingest.TriggerAdmin || f.trigger.gotP.Region != "Bretagne" || f.trigger.gotP.Limit != 10 {
		t.Fatalf("trigger got %q %+v", f.trigger.trigger, f.trigger.gotP)
	}
}

func TestScrapeAliasAndDryRun(t *testing.T) {
	f := newFixture(t)
	f.trigger.sum = pipeline.RunSummary{Status: ingest.StatusSucceeded, DryRun: true}
	rec := f.do(t, http.MethodPost, "/admin/scrape?dry_run=true", "", adminToken)
	if rec.Code != http.StatusOK || !f.trigger.dry {
		t.Fatalf("status=%d dry=%v", rec.Code, f.trigger.dry)
	}
}

func TestIngestErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		sum      pipeline.RunSummary
		status   int
		code     string
		message  string
		withSumm bool
	}{
		{name: "busy", err: runlock.ErrBusy, sum: pipeline.RunSummary{Status: ingest.StatusRejected}, status: http.StatusConflict, code: "concurrent_run_rejected", withSumm: true},
		{name: "params", err: &pipeline.ParamsError{Err: errors.New("Params.Genders[0] failed oneof")}, status: http.StatusBadRequest, code: "invalid_params"},
		{
			name:     "store failure",
			err:      failure.Wrap(failure.KindStore, errors.New("pq: password authentication failed for user admin")),
			sum:      pipeline.RunSummary{Status: ingest.StatusFailed, FirstError: &failure.Summary{Kind: failure.KindStore, Message: "store unavailable"}},
			status:   http.StatusInternalServerError,
			code:     "run_failed",
			message:  "ingestion run failed",
			withSumm: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.trigger.sum, f.trigger.err = tc.sum, tc.err
			rec := f.do(t, http.MethodPost, "/admin/ingest", "{}", adminToken)
			if rec.Code != tc.status {
				t.Fatalf("status: got %d want %d", rec.Code, tc.status)
			}
			var env envelope
			decode(t, rec, &env)
			if env.Error.Code != tc.code {
				t.Fatalf("code: %q", env.Error.Code)
			}
			if tc.message != "" && env.Error.Message != tc.message {
				t.Fatalf("message: %q", env.Error.Message)
			}
			if tc.withSumm != (env.Summary != nil) {
				t.Fatalf("summary presence: %+v", env.Summary)
			}
			if strings.Contains(rec.Body.String(), "password") {
				t.Fatalf("internal detail leaked: %s", rec.Body.String())
			}
		})
	}
}

func TestIngestRejectsMalformedJSON(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/admin/ingest", `{"limit":"many"`, adminToken)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestListRuns(t *testing.T) {
	f := newFixture(t)
	ctx := dbctx.Context{Ctx: context.Background()}
	for i := 0; i < 3; i++ {
		_, err := f.runs.Create(ctx, &ingest.IngestRun{
			Trigger:   ingest.TriggerSchedule,
			Status:    ingest.StatusSucceeded,
			StartedAt: time.Date(2025, 1, 1+i, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("seed run: %v", err)
		}
	}
	rec := f.do(t, http.MethodGet, "/admin/runs?limit=2", "", adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	var out struct {
		Runs []ingest.IngestRun `json:"runs"`
	}
	decode(t, rec, &out)
	if len(out.Runs) != 2 || out.Runs[0].StartedAt.Day() != 3 {
		t.Fatalf("runs: %+v", out.Runs)
	}
	if rec := f.do(t, http.MethodGet, "/admin/runs?limit=zero", "", adminToken); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status: %d", rec.Code)
	}
}

func TestHealthcheckAndTournaments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.do(t, http.MethodGet, "/api/tournaments", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("missing mirror status: %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/healthcheck", "", "")
	var health struct {
		Status     string `json:"status"`
		StoreCount int64  `json:"store_count"`
		Consistent bool   `json:"consistent"`
	}
	decode(t, rec, &health)
	if rec.Code != http.StatusOK || health.Status != "ok" || !health.Consistent {
		t.Fatalf("empty health: %d %+v", rec.Code, health)
	}

	if _, err := f.repo.Create(dbctx.Context{Ctx: ctx}, []*domain.Tournament{testutil.NewTournament("aaa", "1", "2025-03-01")}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rec = f.do(t, http.MethodGet, "/healthcheck", "", "")
	decode(t, rec, &health)
	if health.Status != "degraded" || health.Consistent || health.StoreCount != 1 {
		t.Fatalf("drift health: %+v", health)
	}

	log := testutil.Logger(t)
	if _, err := mirror.NewExporter(f.repo, f.mirrorPath, nil, log).Export(ctx); err != nil {
		t.Fatalf("export: %v", err)
	}
	rec = f.do(t, http.MethodGet, "/api/tournaments", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("tournaments status: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type: %q", ct)
	}
	raw, _ := os.ReadFile(f.mirrorPath)
	if rec.Body.String() != string(raw) {
		t.Fatalf("body should be the mirror document")
	}
	rec = f.do(t, http.MethodGet, "/healthcheck", "", "")
	decode(t, rec, &health)
	if health.Status != "ok" {
		t.Fatalf("health after export: %+v", health)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/healthcheck", "", "")
	rec := f.do(t, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `tp_api_requests_total{method="GET",route="/healthcheck",status="200"} 1`) {
		t.Fatalf("metrics: %d %s", rec.Code, rec.Body.String())
	}
}
