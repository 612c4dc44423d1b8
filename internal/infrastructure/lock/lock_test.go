package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Traslados-api/internal/infrastructure/lock"
)

type locker interface {
	TryLock(ctx context.Context, key string) (func(), bool, error)
}

func exerciseLocker(t *testing.T, l locker) {
	ctx := context.Background()

	release, ok, err := l.TryLock(ctx, "transfer:1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "transfer:1")
	require.NoError(t, err)
	assert.False(t, ok, "la clave ya está tomada")

	other, ok, err := l.TryLock(ctx, "transfer:2")
	require.NoError(t, err)
	assert.True(t, ok, "claves distintas no se bloquean")
	other()

	release()
	release2, ok, err := l.TryLock(ctx, "transfer:1")
	require.NoError(t, err)
	assert.True(t, ok, "liberada se puede volver a tomar")
	release2()

	_, _, err = l.TryLock(ctx, "")
	assert.ErrorIs(t, err, lock.ErrEmptyKey)
}

func TestLocal(t *testing.T) {
	exerciseLocker(t, lock.NewLocal())
}

func TestLocal_ReleaseIsIdempotent(t *testing.T) {
	l := lock.NewLocal()
	release, ok, err := l.TryLock(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	release()
	release()

	_, ok, _ = l.TryLock(context.Background(), "k")
	assert.True(t, ok)
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	exerciseLocker(t, lock.NewRedis(client, 5*time.Second, zerolog.Nop()))
}

func TestRedis_ExpiresOrphanedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	l := lock.NewRedis(client, 2*time.Second, zerolog.Nop())

	_, ok, err := l.TryLock(context.Background(), "transfer:9")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(3 * time.Second)
	release, ok, err := l.TryLock(context.Background(), "transfer:9")
	require.NoError(t, err)
	assert.True(t, ok)
	release()
}
