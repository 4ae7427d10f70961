package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, retention time.Duration) (*RedisAttemptStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisAttemptStore(client, "", retention), mr
}

func TestRedisAttemptStore_AppendAndQuery(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t, time.Hour)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	key := models.IdentityKey("User@Example.com")

	for i := 0; i < 3; i++ {
		err := store.Append(ctx, &models.AttemptEvent{
			Key:       key,
			Action:    models.ActionSignIn,
			Success:   i == 1,
			UserAgent: "test-agent",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	assert.True(t, mr.Exists("attempts:signin:identity:user@example.com"))

	events, err := store.Query(ctx, key, models.ActionSignIn, base)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, base.Add(2*time.Minute), events[0].Timestamp.UTC())
	assert.True(t, events[1].Success)
	assert.Equal(t, "test-agent", events[2].UserAgent)
	assert.NotEmpty(t, events[0].ID)
}

func TestRedisAttemptStore_QueryHonorsSince(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t, time.Hour)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	key := models.IPKey("192.0.2.10")

	require.NoError(t, store.Append(ctx, &models.AttemptEvent{Key: key, Action: models.ActionSignUp, Timestamp: base}))
	require.NoError(t, store.Append(ctx, &models.AttemptEvent{Key: key, Action: models.ActionSignUp, Timestamp: base.Add(10 * time.Minute)}))

	events, err := store.Query(ctx, key, models.ActionSignUp, base.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Len(t, events, 1)

	events, err = store.Query(ctx, models.IPKey("192.0.2.11"), models.ActionSignUp, base)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRedisAttemptStore_TrimsBeyondRetention(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t, 30*time.Minute)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	key := models.IPKey("192.0.2.10")

	require.NoError(t, store.Append(ctx, &models.AttemptEvent{Key: key, Action: models.ActionSignIn, Timestamp: base}))
	require.NoError(t, store.Append(ctx, &models.AttemptEvent{Key: key, Action: models.ActionSignIn, Timestamp: base.Add(time.Hour)}))

	events, err := store.Query(ctx, key, models.ActionSignIn, time.Time{})
	require.NoError(t, err)
	assert.Len(t, events, 1)

	assert.Equal(t, 30*time.Minute, mr.TTL("attempts:signin:ip:192.0.2.10"))
}

func TestRedisAttemptStore_UnavailableIsReported(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t, time.Hour)
	mr.Close()

	_, err := store.Query(ctx, models.IPKey("192.0.2.10"), models.ActionSignIn, time.Now())
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)

	err = store.Append(ctx, &models.AttemptEvent{Key: models.IPKey("192.0.2.10"), Action: models.ActionSignIn, Timestamp: time.Now()})
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}
