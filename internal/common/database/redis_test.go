// internal/common/database/redis_test.go
package database

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisClientSetNX(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &RedisClient{Client: db}
	ctx := context.Background()

	mock.ExpectSetNX("solon:lease:protodikeio-athinon:70927/2025", "1", 2*time.Minute).SetVal(true)
	ok, err := client.SetNX(ctx, "solon:lease:protodikeio-athinon:70927/2025", "1", 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectSetNX("solon:lease:protodikeio-athinon:70927/2025", "1", 2*time.Minute).SetVal(false)
	ok, err = client.SetNX(ctx, "solon:lease:protodikeio-athinon:70927/2025", "1", 2*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "a held lease must not be granted twice")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisClientGetSetDel(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &RedisClient{Client: db}
	ctx := context.Background()

	mock.ExpectSet("solon:snapshot:k", "{}", 6*time.Hour).SetVal("OK")
	require.NoError(t, client.Set(ctx, "solon:snapshot:k", "{}", 6*time.Hour))

	mock.ExpectGet("solon:snapshot:k").SetVal("{}")
	val, err := client.Get(ctx, "solon:snapshot:k")
	require.NoError(t, err)
	assert.Equal(t, "{}", val)

	mock.ExpectDel("solon:snapshot:k").SetVal(1)
	require.NoError(t, client.Del(ctx, "solon:snapshot:k"))

	assert.NoError(t, mock.ExpectationsWereMet())
}
