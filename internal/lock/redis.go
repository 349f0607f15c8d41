package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only while it still holds our token, so a
// lease that expired and was taken over is never released by the old owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lease only while it still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis is a lease lock shared by every API instance. A holder renews its
// lease every ttl/3 until release, so the TTL only bounds how long a crashed
// holder can block a project.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	renewEvery time.Duration
	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Redis{
		client:     client,
		ttl:        ttl,
		logger:     logger,
		renewEvery: ttl / 3,
		minBackoff: 25 * time.Millisecond,
		maxBackoff: time.Second,
	}
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	backoff := r.minBackoff

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			r.logger.Debug("lock acquired", zap.String("key", key), zap.Duration("ttl", r.ttl))
			return r.releaser(key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			if backoff < r.maxBackoff {
				backoff = time.Duration(float64(backoff) * 1.5)
			}
		}
	}
}

func (r *Redis) releaser(key, token string) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			r.release(key, token)
		})
	}
}

// keepAlive extends the lease until stop is closed or the lease is lost.
func (r *Redis) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.renewEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.renewEvery)
			n, err := renewScript.Run(ctx, r.client, []string{key}, token, r.ttl.Milliseconds()).Int()
			cancel()
			if err != nil {
				r.logger.Warn("lock renew failed", zap.String("key", key), zap.Error(err))
				continue
			}
			if n == 0 {
				r.logger.Error("lock lease lost while held", zap.String("key", key))
				return
			}
		}
	}
}

func (r *Redis) release(key, token string) {
	// The caller's ctx may already be cancelled; release must still run.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := releaseScript.Run(ctx, r.client, []string{key}, token).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.logger.Warn("lock release failed", zap.String("key", key), zap.Error(err))
		return
	}
	if n == 0 {
		r.logger.Warn("lock lease expired before release", zap.String("key", key))
	}
}
