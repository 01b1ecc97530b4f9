package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/yungbote/tenpadel-backend/internal/data/repos"
	"github.com/yungbote/tenpadel-backend/internal/domain/tournaments"
	"github.com/yungbote/tenpadel-backend/internal/platform/dbctx"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

// Publisher copies a freshly written mirror to a secondary location.
type Publisher interface {
	Publish(ctx context.Context, data []byte) error
}

type Result struct {
	Path         string `json:"path"`
	Count        int    `json:"count"`
	Bytes        int    `json:"bytes"`
	PublishError string `json:"publish_error,omitempty"`
}

type Exporter struct {
	repo      repos.TournamentRepo
	path      string
	publisher Publisher
	log       *logger.Logger
}

func NewExporter(repo repos.TournamentRepo, path string, publisher Publisher, log *logger.Logger) *Exporter {
	return &Exporter{
		repo:      repo,
		path:      path,
		publisher: publisher,
		log:       log.With("component", "MirrorExporter"),
	}
}

func (e *Exporter) Path() string { return e.path }

// Export rebuilds the mirror from the full store contents.
func (e *Exporter) Export(ctx context.Context) (Result, error) {
	rows, err := e.repo.ListOrdered(dbctx.Context{Ctx: ctx})
	if err != nil {
		return Result{}, fmt.Errorf("mirror read store: %w", err)
	}
	data, err := Encode(rows)
	if err != nil {
		return Result{}, err
	}
	if err := WriteFileAtomic(e.path, data); err != nil {
		return Result{}, err
	}
	res := Result{Path: e.path, Count: len(rows), Bytes: len(data)}
	if e.publisher != nil {
		if err := e.publisher.Publish(ctx, data); err != nil {
			e.log.Warn("mirror publish failed", "error", err)
			res.PublishError = err.Error()
		}
	}
	e.log.Info("mirror exported", "path", e.path, "count", res.Count, "bytes", res.Bytes)
	return res, nil
}

// Encode renders records as the mirror document: a JSON array ordered by
// start_date ascending (unknown dates last), ties broken by identity_hash.
func Encode(rows []*tournaments.Tournament) ([]byte, error) {
	sorted := make([]*tournaments.Tournament, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if len(sorted) == 0 {
		buf.WriteString("[]\n")
		return buf.Bytes(), nil
	}
	if err := enc.Encode(sorted); err != nil {
		return nil, fmt.Errorf("mirror encode: %w", err)
	}
	return buf.Bytes(), nil
}

func less(a, b *tournaments.Tournament) bool {
	switch {
	case a.StartDate == nil && b.StartDate != nil:
		return false
	case a.StartDate != nil && b.StartDate == nil:
		return true
	case a.StartDate != nil && *a.StartDate != *b.StartDate:
		return *a.StartDate < *b.StartDate
	}
	return a.IdentityHash < b.IdentityHash
}

// Load reads a mirror document.
func Load(path string) ([]tournaments.Tournament, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []tournaments.Tournament
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("mirror decode: %w", err)
	}
	return out, nil
}
