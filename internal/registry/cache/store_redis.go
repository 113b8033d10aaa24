package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"anagrafe/internal/domain"
)

const personKeyPrefix = "anagrafe:person:"

// RedisStore is a Redis-backed Store. Use it when several operator sessions
// should share lookup results; entries expire via Redis TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a Redis-backed person cache.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Find(ctx context.Context, taxCode string) (domain.Person, bool, error) {
	raw, err := s.client.Get(ctx, personKeyPrefix+taxCode).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Person{}, false, nil
	}
	if err != nil {
		return domain.Person{}, false, fmt.Errorf("redis get: %w", err)
	}

	var p domain.Person
	if err := json.Unmarshal(raw, &p); err != nil {
		// Unreadable entry: drop it and fall through to the origin.
		_ = s.client.Del(ctx, personKeyPrefix+taxCode).Err()
		return domain.Person{}, false, nil
	}
	return p, true, nil
}

func (s *RedisStore) Save(ctx context.Context, p domain.Person) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode person: %w", err)
	}
	if err := s.client.Set(ctx, personKeyPrefix+p.TaxCode, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Evict(ctx context.Context, taxCode string) error {
	if err := s.client.Del(ctx, personKeyPrefix+taxCode).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
