package redislock_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-dte/internal/application/billing"
	"github.com/jhoicas/facturacion-dte/internal/infrastructure/redislock"
)

var _ billing.SubmissionGuard = (*redislock.Guard)(nil)

func TestLockKey(t *testing.T) {
	assert.Equal(t, "lock:dte:inv-1", redislock.LockKey("inv-1"))
}

func TestAcquire_RedisNoDisponible(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	g := redislock.New(rdb, time.Minute, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	release, err := g.Acquire(ctx, "inv-1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, billing.ErrAlreadySubmitting)
	assert.Nil(t, release)
}

func TestNewClient_FallaSinServidor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := redislock.NewClient(ctx, "127.0.0.1:1")
	assert.Error(t, err)
}
