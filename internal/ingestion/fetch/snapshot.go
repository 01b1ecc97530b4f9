package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yungbote/tenpadel-backend/internal/ingestion/failure"
)

type Snapshot struct {
	URL     string
	Kind    failure.Kind
	Content []byte
	TakenAt time.Time
}

// SnapshotSink stores diagnostic artifacts for terminal fetch failures.
type SnapshotSink interface {
	Save(ctx context.Context, snap Snapshot) (string, error)
}

// DirSink writes one file per snapshot; retention is left to housekeeping.
type DirSink struct {
	Dir string
}

func (s DirSink) Save(ctx context.Context, snap Snapshot) (string, error) {
	if strings.TrimSpace(s.Dir) == "" {
		return "", nil
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("snapshot dir: %w", err)
	}
	name := fmt.Sprintf("snapshot-%s-%s.html", snap.TakenAt.UTC().Format("20060102T150405.000000000Z"), snap.Kind)
	path := filepath.Join(s.Dir, name)
	header := fmt.Sprintf("<!-- url: %s\n     taken_at: %s\n     kind: %s -->\n", snap.URL, snap.TakenAt.UTC().Format(time.RFC3339Nano), snap.Kind)
	content := append([]byte(header), snap.Content...)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}
