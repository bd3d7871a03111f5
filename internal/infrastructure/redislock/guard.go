// Package redislock implementa el guard de envíos con locks distribuidos en Redis,
// para cuando varias instancias de la API atienden la misma base de datos.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/facturacion-dte/internal/application/billing"
	"github.com/jhoicas/facturacion-dte/pkg/logger"
)

// DefaultTTL cubre el peor caso del pipeline: tres llamadas con 4 intentos de 90 s cada una.
const DefaultTTL = 20 * time.Minute

// Guard billing.SubmissionGuard sobre bsm/redislock.
type Guard struct {
	locker *redislock.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewClient crea el cliente Redis y verifica la conexión.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 3 * time.Second,
		PoolSize:    20,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// New construye el guard. ttl <= 0 usa DefaultTTL.
func New(rdb redis.UniversalClient, ttl time.Duration, log *logger.Logger) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Guard{locker: redislock.New(rdb), ttl: ttl, log: log}
}

// LockKey clave del lock de una factura.
func LockKey(invoiceID string) string {
	return "lock:dte:" + invoiceID
}

// Acquire toma el lock de la factura; si otra instancia lo tiene devuelve billing.ErrAlreadySubmitting.
func (g *Guard) Acquire(ctx context.Context, invoiceID string) (func(), error) {
	lock, err := g.locker.Obtain(ctx, LockKey(invoiceID), g.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, billing.ErrAlreadySubmitting
	}
	if err != nil {
		return nil, fmt.Errorf("obtener lock de %s: %w", invoiceID, err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			g.log.Warn().Err(err).Str("invoice_id", invoiceID).Msg("redis: no se pudo liberar el lock")
		}
	}, nil
}
