// internal/store/redis.go
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const changeChannelPrefix = "radar:changes:"

// RedisStore implements Store on a Redis backend: hashes for records,
// Redis sets for membership, and pub/sub for per-key change
// notifications. Redis serializes writes per key, which gives
// subscribers the per-key write ordering the Store contract promises.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects a client and verifies connectivity.
func NewRedisStore(ctx context.Context, addr string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to connect to redis at %s: %v", ErrUnavailable, addr, err)
	}
	return &RedisStore{rdb: rdb}, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) Get(ctx context.Context, key string) (Record, error) {
	m, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: hgetall %s: %v", ErrUnavailable, key, err)
	}
	if len(m) == 0 {
		return nil, nil
	}
	return Record(m), nil
}

func (s *RedisStore) Merge(ctx context.Context, key string, fields Record) error {
	if len(fields) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	if err := s.rdb.HSet(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("%w: hset %s: %v", ErrUnavailable, key, err)
	}
	return s.publishChange(ctx, key)
}

func (s *RedisStore) SetAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := s.rdb.SAdd(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("%w: sadd %s: %v", ErrUnavailable, key, err)
	}
	return s.publishChange(ctx, key)
}

func (s *RedisStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: smembers %s: %v", ErrUnavailable, key, err)
	}
	return members, nil
}

// Subscribe listens on the key's change channel and invokes notify for
// every published write until the CancelFunc runs.
func (s *RedisStore) Subscribe(ctx context.Context, key string, notify func()) (CancelFunc, error) {
	pubsub := s.rdb.Subscribe(ctx, changeChannelPrefix+key)

	// Force the subscription onto the wire before returning, so a
	// write issued after Subscribe returns is guaranteed observable.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("%w: subscribe %s: %v", ErrUnavailable, key, err)
	}

	go func() {
		for range pubsub.Channel() {
			notify()
		}
	}()

	return func() { pubsub.Close() }, nil
}

func (s *RedisStore) publishChange(ctx context.Context, key string) error {
	if err := s.rdb.Publish(ctx, changeChannelPrefix+key, key).Err(); err != nil {
		return fmt.Errorf("%w: publish %s: %v", ErrUnavailable, key, err)
	}
	return nil
}
