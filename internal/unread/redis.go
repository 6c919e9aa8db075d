package unread

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps unread counters in a Redis hash per viewer, so counts
// survive server restarts. Key layout: unread:<viewer id> -> {partner id:
// count}.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func viewerKey(viewerId int) string {
	return fmt.Sprintf("unread:%d", viewerId)
}

func (s *RedisStore) Incr(viewerId, partnerId int) error {
	ctx := context.Background()
	return s.client.HIncrBy(ctx, viewerKey(viewerId), strconv.Itoa(partnerId), 1).Err()
}

func (s *RedisStore) Clear(viewerId, partnerId int) error {
	ctx := context.Background()
	return s.client.HDel(ctx, viewerKey(viewerId), strconv.Itoa(partnerId)).Err()
}

func (s *RedisStore) Counts(viewerId int) (map[int]int, error) {
	ctx := context.Background()
	fields, err := s.client.HGetAll(ctx, viewerKey(viewerId)).Result()
	if err != nil {
		return nil, err
	}

	counts := make(map[int]int, len(fields))
	for field, value := range fields {
		partnerId, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("parse partner id %q: %w", field, err)
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("parse count %q: %w", value, err)
		}
		if n > 0 {
			counts[partnerId] = n
		}
	}

	return counts, nil
}
