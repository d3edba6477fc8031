package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	defaultPoll   = 50 * time.Millisecond
	releaseBudget = 2 * time.Second
	keyPrefix     = "issy:lock:"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lease taken over by another holder is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lease lock shared across processes. A holder that dies keeps
// the key until its TTL expires.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
	poll   time.Duration
}

// NewRedis returns a Redis locker with leases of ttl.
func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, poll: defaultPoll}
}

// NewRedisFromURL parses a redis:// URL and returns the locker together with
// the client, which the caller closes on shutdown.
func NewRedisFromURL(url string, ttl time.Duration) (*Redis, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	return NewRedis(client, ttl), client, nil
}

// Lock implements Locker by polling SET NX PX until it succeeds or ctx is
// done. Redis errors are returned immediately.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	k := keyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		t := time.NewTimer(r.poll)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// ctx may already be done; release on a fresh, bounded context.
			rctx, cancel := context.WithTimeout(context.Background(), releaseBudget)
			defer cancel()
			if err := releaseScript.Run(rctx, r.client, []string{k}, token).Err(); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("redis unlock failed; lease will expire")
			}
		})
	}, nil
}
