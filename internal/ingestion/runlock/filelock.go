package runlock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/tenpadel-backend/internal/platform/heartbeat"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

const DefaultFileLockTTL = 2 * time.Minute

// FileLock is a cross-process lease backed by an exclusively created file.
// The holder touches the file every ttl/3; a file untouched for ttl belongs to
// a dead holder and is taken over.
type FileLock struct {
	path string
	ttl  time.Duration
	log  *logger.Logger
}

func NewFileLock(path string, ttl time.Duration, log *logger.Logger) *FileLock {
	if ttl <= 0 {
		ttl = DefaultFileLockTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &FileLock{path: path, ttl: ttl, log: log.With("component", "FileRunLock", "path", path)}
}

func (l *FileLock) Path() string { return l.path }

func (l *FileLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, false, fmt.Errorf("lock dir: %w", err)
	}
	token := uuid.NewString()
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, werr := fmt.Fprintf(f, "{\"pid\":%d,\"token\":%q,\"time\":%d}\n", os.Getpid(), token, time.Now().Unix())
			if cerr := f.Close(); werr == nil {
				werr = cerr
			}
			if werr != nil {
				_ = os.Remove(l.path)
				return nil, false, fmt.Errorf("write lock file: %w", werr)
			}
			return l.hold(token), true, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, false, fmt.Errorf("create lock file: %w", err)
		}
		fi, err := os.Stat(l.path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("stat lock file: %w", err)
		}
		age := time.Since(fi.ModTime())
		if age < l.ttl {
			return nil, false, nil
		}
		l.log.Warn("taking over stale run lock", "age", age.String())
		if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, false, fmt.Errorf("remove stale lock file: %w", err)
		}
	}
	return nil, false, nil
}

func (l *FileLock) hold(token string) func() {
	stop := heartbeat.Start(l.ttl/3, func(context.Context) error {
		if !l.owns(token) {
			return fmt.Errorf("run lock %s no longer held", l.path)
		}
		now := time.Now()
		return os.Chtimes(l.path, now, now)
	}, func(err error) {
		l.log.Warn("run lock refresh failed", "error", err)
	})
	return func() {
		stop()
		if l.owns(token) {
			if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				l.log.Warn("run lock release failed", "error", err)
			}
		}
	}
}

func (l *FileLock) owns(token string) bool {
	raw, err := os.ReadFile(l.path)
	return err == nil && bytes.Contains(raw, []byte(token))
}
