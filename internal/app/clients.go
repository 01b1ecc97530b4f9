package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/tenpadel-backend/internal/clients/gcp"
	"github.com/yungbote/tenpadel-backend/internal/clients/redis"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

// Clients are the optional external services. Each stays nil when its
// configuration is absent.
type Clients struct {
	RunLock      *redis.RunLock
	RunEvents    *redis.RunEvents
	MirrorBucket *gcp.MirrorBucket
}

func wireClients(ctx context.Context, cfg Config, log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	// Redis
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		lock, err := redis.NewRunLock(cfg.Redis, cfg.RunLockTTL, log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis run lock: %w", err)
		}
		c.RunLock = lock
		events, err := redis.NewRunEvents(cfg.Redis, log)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init redis run events: %w", err)
		}
		c.RunEvents = events
	}

	// Gcs
	if strings.TrimSpace(cfg.MirrorBucket.Bucket) != "" {
		bucket, err := gcp.NewMirrorBucket(ctx, cfg.MirrorBucket, log)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init mirror bucket: %w", err)
		}
		c.MirrorBucket = bucket
	}
	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.RunLock != nil {
		_ = c.RunLock.Close()
	}
	if c.RunEvents != nil {
		_ = c.RunEvents.Close()
	}
	if c.MirrorBucket != nil {
		_ = c.MirrorBucket.Close()
	}
}
