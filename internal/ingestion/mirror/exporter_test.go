package mirror

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yungbote/tenpadel-backend/internal/data/repos"
	"github.com/yungbote/tenpadel-backend/internal/data/repos/testutil"
	"github.com/yungbote/tenpadel-backend/internal/domain/tournaments"
)

type recordingPublisher struct {
	data []byte
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, data []byte) error {
	p.data = append([]byte(nil), data...)
	return p.err
}

func TestExportOrdersAndReplacesAtomically(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.SQLite(t)
	log := testutil.Logger(t)
	repo := repos.NewTournamentRepo(gdb, log)

	testutil.SeedTournament(t, ctx, gdb, testutil.NewTournament("bbb", "2", "2025-03-01"))
	testutil.SeedTournament(t, ctx, gdb, testutil.NewTournament("zzz", "9", ""))
	testutil.SeedTournament(t, ctx, gdb, testutil.NewTournament("ccc", "3", "2025-02-01"))
	testutil.SeedTournament(t, ctx, gdb, testutil.NewTournament("aaa", "1", "2025-03-01"))

	dir := t.TempDir()
	path := filepath.Join(dir, "tournaments.json")
	if err := os.WriteFile(path, []byte("stale"), 0o644); err != nil {
		t.Fatalf("seed stale mirror: %v", err)
	}

	pub := &recordingPublisher{}
	res, err := NewExporter(repo, path, pub, log).Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Count != 4 {
		t.Fatalf("count: got %d want 4", res.Count)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	order := make([]string, 0, len(got))
	for _, r := range got {
		order = append(order, r.IdentityHash)
	}
	if strings.Join(order, ",") != "ccc,aaa,bbb,zzz" {
		t.Fatalf("order: got %v", order)
	}
	if got[3].StartDate != nil || !got[3].DateDegraded {
		t.Fatalf("undated record should be last and degraded: %+v", got[3])
	}

	raw, _ := os.ReadFile(path)
	if string(pub.data) != string(raw) {
		t.Fatalf("publisher should receive the written document")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestExportEmptyStoreWritesEmptyArray(t *testing.T) {
	gdb := testutil.SQLite(t)
	log := testutil.Logger(t)
	path := filepath.Join(t.TempDir(), "nested", "tournaments.json")

	if _, err := NewExporter(repos.NewTournamentRepo(gdb, log), path, nil, log).Export(context.Background()); err != nil {
		t.Fatalf("Export: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read mirror: %v", err)
	}
	if strings.TrimSpace(string(raw)) != "[]" {
		t.Fatalf("want empty array, got %q", raw)
	}
}

func TestExportPublishFailureKeepsLocalMirror(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.SQLite(t)
	log := testutil.Logger(t)
	testutil.SeedTournament(t, ctx, gdb, testutil.NewTournament("aaa", "1", "2025-03-01"))
	path := filepath.Join(t.TempDir(), "tournaments.json")

	pub := &recordingPublisher{err: os.ErrPermission}
	res, err := NewExporter(repos.NewTournamentRepo(gdb, log), path, pub, log).Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.PublishError == "" {
		t.Fatalf("expected publish error in result")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("local mirror missing: %v", err)
	}
}

func TestEncodeDoesNotEscapeHTML(t *testing.T) {
	row := testutil.NewTournament("aaa", "1", "2025-03-01")
	row.Title = "Open <Padel> & Co"
	data, err := Encode(nil)
	if err != nil || strings.TrimSpace(string(data)) != "[]" {
		t.Fatalf("Encode(nil): %q %v", data, err)
	}
	data, err = Encode([]*tournaments.Tournament{row})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), "Open <Padel> & Co") {
		t.Fatalf("title escaped: %s", data)
	}
}
