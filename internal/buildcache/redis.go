package buildcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack/v5"
)

const redisKeyPrefix = "NAVBAKE:HASH:"

// RedisStore keeps records as msgpack values under NAVBAKE:HASH:<id>.
type RedisStore struct {
	redis *redis.Client
}

// OpenRedis connects to a redis://[:password@]host:port[/db] url.
func OpenRedis(ctx context.Context, url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	opt.PoolSize = 2
	opt.MinIdleConns = 1
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{redis: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, blockID string) (*Record, error) {
	data, err := s.redis.Get(ctx, redisKeyPrefix+recordKey(blockID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	r := new(Record)
	if err := msgpack.Unmarshal(data, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RedisStore) Put(ctx context.Context, r *Record) error {
	data, err := msgpack.Marshal(r)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, redisKeyPrefix+recordKey(r.BlockID), data, 0).Err()
}

func (s *RedisStore) Close() error {
	return s.redis.Close()
}
