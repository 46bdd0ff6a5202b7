package daylock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisConfig contains distributed lock configuration.
type RedisConfig struct {
	// TTL bounds how long a crashed holder can keep a day locked.
	// A live holder extends it every TTL/3 until it unlocks.
	TTL time.Duration
	// RetryInterval is the initial wait between acquisition attempts.
	RetryInterval time.Duration
	// MaxRetryInterval caps the wait between attempts.
	MaxRetryInterval time.Duration
}

// DefaultRedisConfig returns default distributed lock configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		TTL:              10 * time.Second,
		RetryInterval:    10 * time.Millisecond,
		MaxRetryInterval: 200 * time.Millisecond,
	}
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript refreshes the expiry only if the key still holds our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis is a lock shared by every instance connected to the same Redis.
type Redis struct {
	client *redis.Client
	config RedisConfig
}

// NewRedis creates a distributed locker.
func NewRedis(client *redis.Client, config RedisConfig) *Redis {
	defaults := DefaultRedisConfig()
	if config.TTL <= 0 {
		config.TTL = defaults.TTL
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = defaults.RetryInterval
	}
	if config.MaxRetryInterval <= 0 {
		config.MaxRetryInterval = defaults.MaxRetryInterval
	}
	if config.MaxRetryInterval < config.RetryInterval {
		config.MaxRetryInterval = config.RetryInterval
	}
	return &Redis{client: client, config: config}
}

// Lock acquires the key with SET NX, retrying with backoff until ctx is done.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	wait := r.config.RetryInterval

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.config.TTL).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
		}

		wait *= 2
		if wait > r.config.MaxRetryInterval {
			wait = r.config.MaxRetryInterval
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done

			// Release must outlive a cancelled request context.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			if err := releaseScript.Run(releaseCtx, r.client, []string{key}, token).Err(); err != nil {
				slog.Error("failed to release day lock", "key", key, "error", err)
			}
		})
	}, nil
}

// keepAlive extends the key's TTL while the lock is held. It gives up when
// the token is gone, which means another holder may have taken the day.
func (r *Redis) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.config.TTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.config.TTL/3)
			extended, err := extendScript.Run(ctx, r.client, []string{key}, token, r.config.TTL.Milliseconds()).Int()
			cancel()

			switch {
			case err != nil:
				slog.Warn("failed to extend day lock", "key", key, "error", err)
			case extended == 0:
				slog.Error("day lock lost before release", "key", key)
				return
			}
		}
	}
}
