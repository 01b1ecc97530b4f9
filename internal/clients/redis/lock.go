package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/tenpadel-backend/internal/platform/heartbeat"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

const DefaultLockTTL = 2 * time.Minute

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lease only while it still holds our token.
var renewScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RunLock is a cross-process lease: SET NX PX with a per-holder token. The
// holder renews the lease every ttl/3 until release, so ttl only bounds how
// long a crashed holder blocks others.
type RunLock struct {
	log *logger.Logger
	rdb *goredis.Client
	key string
	ttl time.Duration
}

func NewRunLock(cfg Config, ttl time.Duration, log *logger.Logger) (*RunLock, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	rdb, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	key := cfg.LockKey
	if key == "" {
		key = "tenpadel:ingest:lock"
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RunLock{
		log: log.With("service", "RedisRunLock"),
		rdb: rdb,
		key: key,
		ttl: ttl,
	}, nil
}

// TryAcquire returns ok=false when another holder owns the lease.
func (l *RunLock) TryAcquire(ctx context.Context) (release func(), ok bool, err error) {
	token := uuid.NewString()
	ok, err = l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	stop := heartbeat.Start(l.ttl/3, func(ctx context.Context) error {
		n, err := renewScript.Run(ctx, l.rdb, []string{l.key}, token, l.ttl.Milliseconds()).Int64()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("lease %s lost", l.key)
		}
		return nil
	}, func(err error) {
		l.log.Warn("redis lock renew failed", "key", l.key, "error", err)
	})
	release = func() {
		stop()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, token).Err(); err != nil {
			l.log.Warn("redis lock release failed", "key", l.key, "error", err)
		}
	}
	return release, true, nil
}

func (l *RunLock) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}
