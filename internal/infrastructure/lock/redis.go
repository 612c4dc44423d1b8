package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrEmptyKey clave de candado vacía.
var ErrEmptyKey = errors.New("lock: clave vacía")

const keyPrefix = "traslados:lock:"

// Redis candado distribuido (RedLock vía redsync) para varias instancias del servicio.
// La expiración evita candados huérfanos si una instancia muere con la clave tomada.
type Redis struct {
	rs     *redsync.Redsync
	expiry time.Duration
	log    zerolog.Logger
}

// NewRedis construye el candado sobre un cliente go-redis.
func NewRedis(client goredislib.UniversalClient, expiry time.Duration, log zerolog.Logger) *Redis {
	if expiry <= 0 {
		expiry = 30 * time.Second
	}
	return &Redis{rs: redsync.New(goredis.NewPool(client)), expiry: expiry, log: log}
}

// TryLock intenta una sola vez. ok=false si otra solicitud tiene la clave.
func (r *Redis) TryLock(ctx context.Context, key string) (func(), bool, error) {
	if strings.TrimSpace(key) == "" {
		return nil, false, ErrEmptyKey
	}
	mutex := r.rs.NewMutex(keyPrefix+key, redsync.WithExpiry(r.expiry), redsync.WithTries(1))
	if err := mutex.LockContext(ctx); err != nil {
		msg := err.Error()
		if errors.Is(err, redsync.ErrFailed) || strings.Contains(msg, "lock already taken") || strings.Contains(msg, "failed to acquire lock") {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("lock %s: %w", key, err)
	}
	return func() {
		// contexto propio: el de la solicitud puede estar cancelado al liberar
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if ok, err := mutex.UnlockContext(ctx); !ok || err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("no se pudo liberar el candado")
		}
	}, true, nil
}
