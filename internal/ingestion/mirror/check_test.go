package mirror

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/yungbote/tenpadel-backend/internal/data/repos"
	"github.com/yungbote/tenpadel-backend/internal/data/repos/testutil"
	"github.com/yungbote/tenpadel-backend/internal/domain/tournaments"
)

func TestCheckConsistency(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.SQLite(t)
	log := testutil.Logger(t)
	repo := repos.NewTournamentRepo(gdb, log)
	path := filepath.Join(t.TempDir(), "tournaments.json")

	rep, err := Check(ctx, path, repo)
	if err != nil {
		t.Fatalf("Check missing: %v", err)
	}
	if rep.MirrorFound || !rep.Consistent {
		t.Fatalf("missing mirror with empty store: %+v", rep)
	}

	testutil.SeedTournament(t, ctx, gdb, testutil.NewTournament("aaa", "1", "2025-03-01"))
	testutil.SeedTournament(t, ctx, gdb, testutil.NewTournament("bbb", "2", "2025-03-02"))
	if _, err := NewExporter(repo, path, nil, log).Export(ctx); err != nil {
		t.Fatalf("Export: %v", err)
	}
	rep, err = Check(ctx, path, repo)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !rep.Consistent || rep.MirrorCount != 2 || rep.StoreCount != 2 {
		t.Fatalf("expected consistent report: %+v", rep)
	}

	testutil.SeedTournament(t, ctx, gdb, testutil.NewTournament("ccc", "3", "2025-03-03"))
	rep, err = Check(ctx, path, repo)
	if err != nil {
		t.Fatalf("Check drift: %v", err)
	}
	if rep.Consistent {
		t.Fatalf("store drift should be inconsistent: %+v", rep)
	}

	row := testutil.NewTournament("ghost", "4", "2025-03-04")
	data, err := Encode([]*tournaments.Tournament{row})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := WriteFileAtomic(path, data); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	rep, err = Check(ctx, path, repo)
	if err != nil {
		t.Fatalf("Check ghost: %v", err)
	}
	if rep.Consistent || len(rep.Unresolved) != 1 || rep.Unresolved[0] != "ghost" {
		t.Fatalf("expected unresolved ghost: %+v", rep)
	}
}
