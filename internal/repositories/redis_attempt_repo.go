package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisAttemptStore keeps attempt events in one sorted set per key and action,
// scored by Unix milliseconds. Entries older than the retention period are
// trimmed on write and the whole set expires after retention of inactivity.
type RedisAttemptStore struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewRedisAttemptStore creates a RedisAttemptStore
func NewRedisAttemptStore(client redis.UniversalClient, prefix string, retention time.Duration) *RedisAttemptStore {
	if prefix == "" {
		prefix = "attempts"
	}
	return &RedisAttemptStore{client: client, prefix: prefix, retention: retention}
}

func (s *RedisAttemptStore) key(key models.AttemptKey, action models.ActionType) string {
	return fmt.Sprintf("%s:%s:%s:%s", s.prefix, action, key.Scope, key.Value)
}

// Append records an attempt event
func (s *RedisAttemptStore) Append(ctx context.Context, event *models.AttemptEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	member, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode attempt: %w", err)
	}

	k := s.key(event.Key, event.Action)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, k, redis.Z{Score: float64(event.Timestamp.UnixMilli()), Member: member})
		if s.retention > 0 {
			cutoff := event.Timestamp.Add(-s.retention).UnixMilli()
			pipe.ZRemRangeByScore(ctx, k, "-inf", "("+strconv.FormatInt(cutoff, 10))
			pipe.Expire(ctx, k, s.retention)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	return nil
}

// Query returns the events for key and action at or after since, most recent first
func (s *RedisAttemptStore) Query(ctx context.Context, key models.AttemptKey, action models.ActionType, since time.Time) ([]*models.AttemptEvent, error) {
	members, err := s.client.ZRevRangeByScore(ctx, s.key(key, action), &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	events := make([]*models.AttemptEvent, 0, len(members))
	for _, m := range members {
		var event models.AttemptEvent
		if err := json.Unmarshal([]byte(m), &event); err != nil {
			return nil, fmt.Errorf("%w: decode attempt: %v", models.ErrStoreUnavailable, err)
		}
		// Millisecond scores can admit an event just before since
		if event.Timestamp.Before(since) {
			continue
		}
		events = append(events, &event)
	}

	return events, nil
}

// DeleteOlderThan is a no-op for Redis; sets are trimmed on write and expire on their own.
func (s *RedisAttemptStore) DeleteOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}
