package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"kos_chat/internal/domain"
	apperrors "kos_chat/pkg/errors"
	"kos_chat/pkg/logger"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisSessionStore_SaveLoadDelete(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisSessionStore(rdb, time.Hour, logger.Nop())
	ctx := context.Background()

	sess := domain.Session{Token: "tok", UserID: "o1", Role: domain.RoleOwner, Email: "owner@kos.id"}
	id, err := store.Save(ctx, sess)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	key := fmt.Sprintf(SessionKeyPrefix, id)
	assert.Equal(t, "kos_chat:session:"+id, key)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))

	raw, err := mr.Get(key)
	require.NoError(t, err)
	var stored domain.Session
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, sess, stored)

	loaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sess, loaded)

	require.NoError(t, store.Delete(ctx, id))
	assert.False(t, mr.Exists(key))

	_, err = store.Load(ctx, id)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestRedisSessionStore_Load(t *testing.T) {
	ts := []struct {
		name        string
		setup       func(mr *miniredis.Miniredis)
		expectedErr error
		expectAny   bool
	}{
		{
			name:        "unknown id",
			setup:       func(mr *miniredis.Miniredis) {},
			expectedErr: apperrors.ErrSessionNotFound,
		},
		{
			name: "expired after ttl",
			setup: func(mr *miniredis.Miniredis) {
				_ = mr.Set(fmt.Sprintf(SessionKeyPrefix, "s1"), `{"token":"tok","userId":"u1"}`)
				mr.SetTTL(fmt.Sprintf(SessionKeyPrefix, "s1"), time.Minute)
				mr.FastForward(2 * time.Minute)
			},
			expectedErr: apperrors.ErrSessionNotFound,
		},
		{
			name: "corrupted payload",
			setup: func(mr *miniredis.Miniredis) {
				_ = mr.Set(fmt.Sprintf(SessionKeyPrefix, "s1"), "not json")
			},
			expectAny: true,
		},
		{
			name: "redis failure",
			setup: func(mr *miniredis.Miniredis) {
				mr.SetError("ERR redis unavailable")
			},
			expectAny: true,
		},
	}

	for _, tt := range ts {
		t.Run(tt.name, func(t *testing.T) {
			mr, rdb := newTestRedis(t)
			tt.setup(mr)
			store := NewRedisSessionStore(rdb, time.Hour, logger.Nop())

			_, err := store.Load(context.Background(), "s1")

			require.Error(t, err)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			}
			if tt.expectAny {
				assert.NotErrorIs(t, err, apperrors.ErrSessionNotFound)
			}
		})
	}
}

func TestRateLimitRepository_Increment(t *testing.T) {
	mr, rdb := newTestRedis(t)
	repo := NewRateLimitRepository(rdb, logger.Nop())
	ctx := context.Background()
	key := fmt.Sprintf(RateLimitKeyPrefix, "user:u1")

	count, err := repo.Increment(ctx, "user:u1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.True(t, mr.Exists("kos_chat:ratelimit:user:u1"))
	assert.Equal(t, time.Minute, mr.TTL(key))

	// окно не продлевается последующими запросами
	mr.FastForward(40 * time.Second)
	count, err = repo.Increment(ctx, "user:u1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, 20*time.Second, mr.TTL(key))

	mr.FastForward(21 * time.Second)
	assert.False(t, mr.Exists(key))

	count, err = repo.Increment(ctx, "user:u1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, time.Minute, mr.TTL(key))
}

func TestRateLimitRepository_SeparateSubjects(t *testing.T) {
	_, rdb := newTestRedis(t)
	repo := NewRateLimitRepository(rdb, logger.Nop())
	ctx := context.Background()

	ts := []struct {
		subject  string
		expected int64
	}{
		{subject: "user:u1", expected: 1},
		{subject: "user:u1", expected: 2},
		{subject: "ip:10.0.0.1", expected: 1},
		{subject: "user:u2", expected: 1},
		{subject: "user:u1", expected: 3},
	}

	for _, tt := range ts {
		count, err := repo.Increment(ctx, tt.subject, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, count, tt.subject)
	}
}

func TestRateLimitRepository_RedisFailure(t *testing.T) {
	mr, rdb := newTestRedis(t)
	repo := NewRateLimitRepository(rdb, logger.Nop())
	mr.SetError("ERR redis unavailable")

	_, err := repo.Increment(context.Background(), "user:u1", time.Minute)
	assert.Error(t, err)
}
