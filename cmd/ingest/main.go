// Command ingest runs one tournament ingestion from the command line.
//
//	ingest --gender women --category P100 --category P250 --from 2025-03-01
//	ingest --dry-run --output candidates.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/yungbote/tenpadel-backend/internal/app"
	"github.com/yungbote/tenpadel-backend/internal/domain/ingest"
	"github.com/yungbote/tenpadel-backend/internal/domain/tournaments"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/mirror"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/pipeline"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

// multiFlag collects a repeatable string flag. Comma separated values are
// split as well.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*m = append(*m, part)
		}
	}
	return nil
}

type options struct {
	params      pipeline.Params
	dryRun      bool
	output      string
	snapshotDir string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var (
		o                           options
		genders, categories, levels multiFlag
	)
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Var(&genders, "gender", "gender filter: men, women, mixed (repeatable)")
	fs.Var(&categories, "category", "category filter such as P100 (repeatable)")
	fs.Var(&levels, "level", "level filter: club, regional, national, elite (repeatable)")
	fs.StringVar(&o.params.From, "from", "", "window start, YYYY-MM-DD")
	fs.StringVar(&o.params.To, "to", "", "window end, YYYY-MM-DD")
	fs.StringVar(&o.params.Region, "region", "", "region filter")
	fs.StringVar(&o.params.City, "city", "", "city filter")
	fs.IntVar(&o.params.RadiusKM, "radius-km", 0, "search radius around city in km")
	fs.IntVar(&o.params.Limit, "limit", 0, "maximum candidates to keep")
	fs.BoolVar(&o.dryRun, "dry-run", false, "fetch and normalize only; never write the store")
	fs.StringVar(&o.output, "output", "", "write the summary (or dry-run candidates) to this file instead of stdout")
	fs.StringVar(&o.snapshotDir, "snapshot-dir", "", "directory for raw page snapshots")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	o.params.Genders = genders
	o.params.Categories = categories
	o.params.Levels = levels
	return o, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if opts.snapshotDir != "" {
		cfg.SnapshotDir = opts.snapshotDir
	}

	if opts.dryRun {
		return dryRun(ctx, cfg, opts)
	}

	a, err := app.NewWithConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		return 1
	}
	defer a.Close()

	sum, err := a.Services.Pipeline.Run(ctx, opts.params, ingest.TriggerCLI)
	if werr := writeJSON(opts.output, sum); werr != nil {
		a.Log.Error("write summary failed", "error", werr)
		return 1
	}
	if err != nil {
		a.Log.Error("ingest run failed", "status", sum.Status, "error", err)
		return 1
	}
	return 0
}

// dryRun never opens the store.
func dryRun(ctx context.Context, cfg app.Config, opts options) int {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	fetcher, err := app.NewFetchClient(cfg, log)
	if err != nil {
		log.Error("init fetch client failed", "error", err)
		return 1
	}
	svc, err := pipeline.NewService(cfg.PipelineConfig(), pipeline.Deps{Fetcher: fetcher}, log)
	if err != nil {
		log.Error("init pipeline failed", "error", err)
		return 1
	}

	sum, err := svc.DryRun(ctx, opts.params)
	if err != nil {
		log.Error("dry run failed", "status", sum.Status, "error", err)
		return 1
	}

	if opts.output == "" {
		if err := writeJSON("", sum); err != nil {
			log.Error("write summary failed", "error", err)
			return 1
		}
		return 0
	}
	rows := make([]*tournaments.Tournament, 0, len(sum.Candidates))
	for i := range sum.Candidates {
		rows = append(rows, &sum.Candidates[i])
	}
	data, err := mirror.Encode(rows)
	if err != nil {
		log.Error("encode candidates failed", "error", err)
		return 1
	}
	if err := mirror.WriteFileAtomic(opts.output, data); err != nil {
		log.Error("write candidates failed", "error", err)
		return 1
	}
	log.Info("dry run candidates written", "path", opts.output, "count", len(rows), "fetched", sum.Fetched, "excluded", sum.Excluded)
	return 0
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return mirror.WriteFileAtomic(path, data)
}
