package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

type MirrorBucketConfig struct {
	Bucket       string
	Object       string
	CacheControl string
	CDNDomain    string
}

// MirrorBucket uploads the mirror document to Cloud Storage.
type MirrorBucket struct {
	log    *logger.Logger
	client *storage.Client
	cfg    MirrorBucketConfig
}

func NewMirrorBucket(ctx context.Context, cfg MirrorBucketConfig, log *logger.Logger) (*MirrorBucket, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("missing mirror bucket name")
	}
	if strings.TrimSpace(cfg.Object) == "" {
		cfg.Object = "tournaments.json"
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "public, max-age=300"
	}

	opts := ClientOptionsFromEnv()
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	stClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &MirrorBucket{
		log:    log.With("service", "MirrorBucket"),
		client: stClient,
		cfg:    cfg,
	}, nil
}

func (b *MirrorBucket) Publish(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := b.client.Bucket(b.cfg.Bucket).Object(b.cfg.Object).NewWriter(ctx)
	w.ContentType = "application/json"
	w.CacheControl = b.cfg.CacheControl
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write mirror to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	b.log.Debug("mirror published", "bucket", b.cfg.Bucket, "object", b.cfg.Object, "bytes", len(data))
	return nil
}

func (b *MirrorBucket) PublicURL() string {
	if b.cfg.CDNDomain != "" {
		return fmt.Sprintf("https://%s/%s", b.cfg.CDNDomain, b.cfg.Object)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", b.cfg.Bucket, b.cfg.Object)
}

func (b *MirrorBucket) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}
