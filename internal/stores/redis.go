package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps records in Redis under a shared prefix and relays
// mutations over a pub/sub channel so every process watching the same
// prefix observes them.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisStore(redisClient redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "possec"
	}
	return &RedisStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + ":" + key
}

func (s *RedisStore) channel() string {
	return s.prefix + ":changes"
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.redis.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	old, err := s.redis.SetArgs(ctx, s.key(key), value, redis.SetArgs{Get: true}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.publish(ctx, ChangeEvent{Key: key, Op: ChangeSet, OldValue: old, NewValue: value})
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	old, err := s.redis.GetDel(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.publish(ctx, ChangeEvent{Key: key, Op: ChangeRemove, OldValue: old})
	return nil
}

func (s *RedisStore) ListKeys(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	strip := len(s.prefix) + 1

	for {
		batch, next, err := s.redis.Scan(ctx, cursor, s.prefix+":*", 256).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		for _, full := range batch {
			if full == s.channel() {
				continue
			}
			keys = append(keys, full[strip:])
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

func (s *RedisStore) Watch(ctx context.Context) (<-chan ChangeEvent, error) {
	sub := s.redis.Subscribe(ctx, s.channel())
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	out := make(chan ChangeEvent, watchBufferSize)
	go func() {
		defer close(out)
		defer sub.Close()

		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				select {
				case out <- event:
				default:
				}
			}
		}
	}()

	return out, nil
}

// publish is best-effort: a lost notification degrades cache freshness,
// not correctness, so publish failures are swallowed.
func (s *RedisStore) publish(ctx context.Context, event ChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	s.redis.Publish(ctx, s.channel(), payload)
}
