// Command healthcheck compares the JSON mirror with the store and exits
// non-zero when they disagree.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/tenpadel-backend/internal/app"
	"github.com/yungbote/tenpadel-backend/internal/data/db"
	"github.com/yungbote/tenpadel-backend/internal/data/repos"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/mirror"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := app.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	store, err := db.NewStoreService(cfg.DB, log)
	if err != nil {
		log.Error("open store failed", "error", err)
		return 1
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := mirror.Check(ctx, cfg.MirrorPath, repos.NewTournamentRepo(store.DB(), log))
	if err != nil {
		log.Error("consistency check failed", "error", err)
		return 1
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
	if !report.Consistent {
		log.Warn("mirror drift detected", "mirror_count", report.MirrorCount, "store_count", report.StoreCount, "unresolved", report.Unresolved)
		return 1
	}
	return 0
}
