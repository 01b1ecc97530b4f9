package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

// RunEvents announces finished ingestion runs on a pub/sub channel.
type RunEvents struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewRunEvents(cfg Config, log *logger.Logger) (*RunEvents, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	rdb, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	ch := cfg.Channel
	if ch == "" {
		ch = "tenpadel:ingest-runs"
	}
	return &RunEvents{
		log:     log.With("service", "RedisRunEvents"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (e *RunEvents) Publish(ctx context.Context, event any) error {
	if e == nil || e.rdb == nil {
		return fmt.Errorf("redis run events not initialized")
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return e.rdb.Publish(ctx, e.channel, raw).Err()
}

func (e *RunEvents) Close() error {
	if e == nil || e.rdb == nil {
		return nil
	}
	return e.rdb.Close()
}
