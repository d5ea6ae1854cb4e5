package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Compile-time assertion that RedisLists implements Lists.
var _ Lists = (*RedisLists)(nil)

// RedisLists implements Lists on Redis lists. The atomic data+signal pair
// push uses a MULTI/EXEC transaction; Pop maps to RPOP and BlockPop to BRPOP,
// giving FIFO order and at-most-once delivery per entry across concurrent
// consumers.
type RedisLists struct {
	rdb redis.UniversalClient
}

// NewRedisLists creates a RedisLists on the given client.
func NewRedisLists(rdb redis.UniversalClient) *RedisLists {
	return &RedisLists{rdb: rdb}
}

// Push implements Lists.
func (r *RedisLists) Push(ctx context.Context, dataKey, signalKey string, payload []byte) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, dataKey, payload)
		pipe.LPush(ctx, signalKey, SignalToken)
		return nil
	})
	return err
}

// Pop implements Lists.
func (r *RedisLists) Pop(ctx context.Context, key string) ([]byte, error) {
	raw, err := r.rdb.RPop(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// BlockPop implements Lists. BRPOP with zero timeout blocks until a token
// arrives; go-redis unblocks the call when the context is cancelled.
func (r *RedisLists) BlockPop(ctx context.Context, key string) error {
	_, err := r.rdb.BRPop(ctx, 0, key).Result()
	return err
}

// Len implements Lists.
func (r *RedisLists) Len(ctx context.Context, key string) (int64, error) {
	return r.rdb.LLen(ctx, key).Result()
}

// ConnectConfig holds the Redis connection settings for Connect.
type ConnectConfig struct {
	URL            string
	RetryAttempts  int
	RetryInterval  time.Duration
	ConnectTimeout time.Duration
}

// Connect establishes a Redis connection, retrying up to RetryAttempts times
// with RetryInterval between attempts. Each attempt pings the server; the
// first successful ping wins.
func Connect(ctx context.Context, cfg ConnectConfig) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		} else {
			lastErr = err
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ctx.Err(), lastErr)
		case <-time.After(cfg.RetryInterval):
		}
	}
	return nil, errors.Join(errors.New("redis did not become ready"), lastErr)
}
